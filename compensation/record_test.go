package compensation_test

import (
	"testing"

	"github.com/flowforge/flowforge/compensation"
)

func TestResultConstants(t *testing.T) {
	t.Parallel()
	if compensation.ResultSuccess == compensation.ResultFailed {
		t.Fatal("success and failed results must be distinct")
	}
}
