package booking

const (
	TopicBookingCreated       = "booking.created"
	TopicBookingStatusChanged = "booking.status.changed"
	TopicBookingDeleted       = "booking.deleted"
)

// Partition key = room_id, supaya semua event 1 room maintain urutan.
// Notifier lihat create/approve/cancel room yang sama selalu in-order.
func PartitionKey(roomID string) []byte { return []byte(roomID) }
