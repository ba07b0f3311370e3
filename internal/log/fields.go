package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUserID    = "user_id"
	FieldEmail     = "email"
	FieldState     = "state"
	FieldVersion   = "session_version"
	FieldOnline    = "online"
	FieldOutcome   = "outcome"
	FieldAmount    = "amount"
	FieldCategory  = "category"
	FieldExpenseID = "expense_id"
	FieldEvent     = "event"
	FieldKey       = "key"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentSession   = "session"
	ComponentReconcile = "reconcile"
	ComponentLedger    = "ledger"
	ComponentAccount   = "account"
	ComponentCache     = "cache"
	ComponentStorage   = "storage"
	ComponentRemote    = "remote"
	ComponentNetwork   = "network"
	ComponentEvents    = "events"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentWorker    = "worker"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpLogin    = "login"
	OpRegister = "register"
	OpLogout   = "logout"
	OpRestore  = "restore"
	OpSync     = "sync"
	OpPersist  = "persist"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpMirror   = "mirror"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the user identity fields. Empty values are skipped.
func (f LogFields) WithUser(id, email string) LogFields {
	if id != "" {
		f[FieldUserID] = id
	}
	if email != "" {
		f[FieldEmail] = email
	}
	return f
}

// WithSession adds the session state and version.
func (f LogFields) WithSession(state string, version uint64) LogFields {
	f[FieldState] = state
	f[FieldVersion] = version
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
