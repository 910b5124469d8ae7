package dispatch

// SelfValidator is implemented by request types that validate themselves.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request.
type Validator interface {
	Validate(req any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(req any) error

// Validate calls f.
func (f ValidatorFunc) Validate(req any) error { return f(req) }
