// Package audithook is a FlowForge extension that bridges workflow and
// compensation lifecycle events to an append-only audit trail backend.
//
// It subscribes to the reserved topics of the event dispatch contract
// and turns each into a structured [AuditEvent] through the
// [Recorder] interface, giving operators a chronological view of a
// workflow's history in addition to the point-in-time snapshot returned
// by store.Store.GetWorkflowHistory.
//
// # Usage
//
//	rec := audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return chronicle.Info(ctx, evt.Action, evt.Resource, evt.ResourceID).
//	        Category(evt.Category).
//	        Outcome(evt.Outcome).
//	        Record()
//	})
//	if err := audithook.New(rec).Subscribe(bus); err != nil {
//	    log.Fatal(err)
//	}
package audithook
