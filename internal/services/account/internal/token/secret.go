package token

type secretProvider interface {
	Get() []byte
}

// SecretString is a signing key held in memory.
type SecretString struct {
	secret []byte
}

func NewSecretString(secret string) *SecretString {
	return &SecretString{
		secret: []byte(secret),
	}
}

func (s *SecretString) Get() []byte {
	return s.secret
}

func (s *SecretString) String() string {
	return "[REDACTED]"
}
