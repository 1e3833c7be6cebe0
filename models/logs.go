package models

// Login log actions.
const (
	LoginActionAttempt = "attempt"
	LoginActionLogin   = "login"
	LoginActionLogout  = "logout"
)

// LoginLogSchema records every login attempt, success and logout. The
// attempts column is derived from the trailing attempt rows of this log at
// append time, never from a separately mutable counter, so the log and the
// lockout decision cannot drift apart.
var LoginLogSchema = Schema{
	Table: "login_log",
	Fields: []Field{
		{Name: "user", Kind: Text},
		{Name: "action", Kind: Text},
		{Name: "attempts", Kind: Int},
		{Name: "method", Kind: Text},
		{Name: "active", Kind: Bool},
		{Name: "timestamp", Kind: Time},
	},
}

// MovementLogSchema records every sample and box movement between locations.
var MovementLogSchema = Schema{
	Table: "movement_log",
	Fields: []Field{
		{Name: "object", Kind: Text},
		{Name: "type", Kind: Text},
		{Name: "initial_location", Kind: Text},
		{Name: "new_location", Kind: Text},
		{Name: "user", Kind: Text},
		{Name: "timestamp", Kind: Time},
	},
}

// LabelLogSchema records label print jobs. The job field carries an external
// reference id for the print job.
var LabelLogSchema = Schema{
	Table: "label_log",
	Fields: []Field{
		{Name: "label", Kind: Text},
		{Name: "action", Kind: Text},
		{Name: "job", Kind: Text},
		{Name: "user", Kind: Text},
		{Name: "timestamp", Kind: Time},
	},
}

// BoxingLogSchema records samples being placed into box positions.
var BoxingLogSchema = Schema{
	Table: "boxing_log",
	Fields: []Field{
		{Name: "sample", Kind: Text},
		{Name: "box", Kind: Text},
		{Name: "position", Kind: Text},
		{Name: "user", Kind: Text},
		{Name: "timestamp", Kind: Time},
	},
}

// TimesSchema tracks freeze/thaw intervals per sample. id_second counts the
// intervals of one sample; duration is filled in when the next movement
// closes the interval, which recomputes the row checksum.
var TimesSchema = Schema{
	Table: "times",
	Fields: []Field{
		{Name: "id_ref", Kind: Int},
		{Name: "id_second", Kind: Int},
		{Name: "item", Kind: Text},
		{Name: "method", Kind: Text},
		{Name: "time", Kind: Time},
		{Name: "duration", Kind: Duration},
	},
}

// Freeze/thaw methods recorded in the times table.
const (
	MethodFreeze = "freeze"
	MethodThaw   = "thaw"
)
