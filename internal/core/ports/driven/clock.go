package driven

// Clock supplies timestamps in Unix milliseconds.
// Successive calls must return strictly increasing values within a process.
type Clock interface {
	Now() int64
}

// IDGenerator supplies globally unique identifiers.
type IDGenerator interface {
	NewID() string
}
