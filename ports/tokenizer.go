package ports

import "github.com/layer-3/chaintalk/core"

// Tokenizer converts between auth sessions and wire tokens
type Tokenizer interface {
	SessionToToken(session *core.AuthSession) (string, error)
	TokenToSession(token string) (*core.AuthSession, error)
}
