package booking

// transitions is the whole lifecycle state machine. Every mutation goes
// through ValidTransition; nothing else decides legality.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed:  true,
		StatusInProgress: true,
		StatusCanceled:   true,
		StatusReschedule: true,
	},
	StatusConfirmed: {
		StatusConfirmed:  true, // reschedule re-confirms at the new time
		StatusInProgress: true,
		StatusCanceled:   true,
		StatusReschedule: true,
	},
	StatusInProgress: {
		StatusConfirmed: true,
		StatusCompleted: true,
		StatusCanceled:  true,
	},
	StatusReschedule: {
		StatusConfirmed: true,
		StatusCanceled:  true,
	},
	StatusCanceled: {
		StatusCanceled: true, // cancel is idempotent
	},
	StatusCompleted: {},
}

func ValidTransition(from, to Status) bool {
	return transitions[from][to]
}
