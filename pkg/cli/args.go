package cli

// UsageError reports malformed command arguments together with the usage
// line to show the user.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Usage
}

// Args is a resumable cursor over a command's argument tokens, letting each
// command define its own positional grammar.
type Args struct {
	tokens []string
	pos    int
	usage  string
}

func newArgs(tokens []string, usage string) *Args {
	return &Args{tokens: tokens, usage: usage}
}

// Next consumes the next required argument, failing with a UsageError when
// the token stream is exhausted.
func (a *Args) Next() (string, error) {
	if a.pos >= len(a.tokens) {
		return "", &UsageError{Usage: a.usage}
	}
	tok := a.tokens[a.pos]
	a.pos++
	return tok, nil
}

// Optional consumes the next argument if present.
func (a *Args) Optional() (string, bool) {
	if a.pos >= len(a.tokens) {
		return "", false
	}
	tok := a.tokens[a.pos]
	a.pos++
	return tok, true
}
