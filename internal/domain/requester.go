package domain

// Requester specializes a User with a fixed region and location.
// Both are immutable after registration.
type Requester struct {
	ID       string
	UserID   string
	Region   Region
	Location string
}

// Certifier specializes a User with approval privileges. Certifiers have no
// region affinity and may act on any task.
type Certifier struct {
	ID     string
	UserID string
}
