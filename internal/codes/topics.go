package codes

const (
	TopicOrderCompleted   = "codeshop.order.completed"
	TopicPurchaseRejected = "codeshop.purchase.rejected"
)

// PartitionKey keeps every event of one order on one partition so
// consumers see them in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
