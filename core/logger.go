package core

// Logger is any service that can log messages with optional structured arguments.
// Expected args: error, map[string]interface{}, Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Actor identifies the user performing an action. Authentication itself lives
// outside this app; actors arrive fully resolved (via JWT claims at the API edge).
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a Actor) IsZero() bool {
	return a.ID == ""
}
