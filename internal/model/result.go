package model

// ArchivedGoal is the result of archiving: the updated goal plus the
// notice shown to the user.
type ArchivedGoal struct {
	Goal   *Goal  `json:"goal"`
	Notice Notice `json:"notice"`
}

// StatusResult is the outcome of a status change. Notice is set only for
// transitions that produce one.
type StatusResult[T any] struct {
	Item   *T      `json:"item"`
	Notice *Notice `json:"notice,omitempty"`
}
