package core

// DBOrdering is one ORDER BY term requested by a caller.
// Repositories decide which fields they accept.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
