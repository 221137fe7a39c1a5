// Package registry implements the workflow type catalog.
//
// # Registering a Workflow Type
//
//	reg := registry.New()
//	err := reg.Register(registry.Definition{
//	    Type: "order-fulfillment",
//	    Steps: []registry.StepDefinition{
//	        {Name: "ValidateOrder", Topic: "orders.validate"},
//	        {Name: "ChargePayment", Topic: "payments.charge", CompensationName: "RefundPayment"},
//	        {Name: "ReserveInventory", Topic: "inventory.reserve", CompensationName: "ReleaseInventory"},
//	        {Name: "CreateShipment", Topic: "shipments.create", CompensationName: "CancelShipment"},
//	        {Name: "NotifyUser", Topic: "notifications.send"},
//	    },
//	})
package registry
