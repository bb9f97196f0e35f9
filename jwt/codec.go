package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the algorithm used to sign and verify tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// TokenType distinguishes short-lived access tokens from long-lived refresh tokens.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

var (
	// ErrMissingKey is returned by NewCodec when the configured method has no usable key.
	ErrMissingKey = errors.New("signing key not configured")
	// ErrInvalidClaims is returned by Encode for claims that cannot be issued.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Config configures a Codec.
//
// For MethodHS256, PrivateKey holds the shared secret. For MethodEd25519, PrivateKey
// signs and PublicKey verifies; both accept raw key bytes or PEM.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	// Now overrides the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the payload bound into a signed token.
//
// IssuedAt and ExpiresAt carry second precision in UTC; Decode(Encode(c)) returns c
// unchanged for any claims value normalised that way.
type Claims struct {
	Subject   int64
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Type      TokenType
}

// Normalize truncates timestamps to the precision carried on the wire.
func (c Claims) Normalize() Claims {
	c.IssuedAt = c.IssuedAt.UTC().Truncate(time.Second)
	c.ExpiresAt = c.ExpiresAt.UTC().Truncate(time.Second)
	return c
}

type wireClaims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// DecodeErrorKind classifies why a token failed to decode.
type DecodeErrorKind int

const (
	// DecodeMalformed covers bad structure, bad signature, unexpected algorithm and bad claims.
	DecodeMalformed DecodeErrorKind = iota + 1
	// DecodeExpired means the signature verified but the token is past its expiry.
	DecodeExpired
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeExpired:
		return "expired"
	case DecodeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode for every rejected token.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return "token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsExpired reports whether err is a DecodeError of kind DecodeExpired.
func IsExpired(err error) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == DecodeExpired
}

// Codec signs and verifies tokens. It performs no I/O and is safe for concurrent use.
type Codec struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	parser    *jwt.Parser
}

// NewCodec validates cfg and prepares signing and verification keys.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Codec{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, fmt.Errorf("%w: hs256 requires a secret", ErrMissingKey)
		}
		c.method = jwt.SigningMethodHS256
		c.signKey = cfg.PrivateKey
		c.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 || len(cfg.PublicKey) == 0 {
			return nil, fmt.Errorf("%w: ed25519 requires a private and a public key", ErrMissingKey)
		}
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		c.method = jwt.SigningMethodEdDSA
		c.signKey = priv
		c.verifyKey = pub
	default:
		return nil, errors.New("unsupported signing method")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	c.parser = jwt.NewParser(options...)

	return c, nil
}

// Encode signs claims. It fails only on claims that could never verify
// (missing jti, unknown type, expiry not after issuance) or on a signing fault.
func (c *Codec) Encode(claims Claims) (string, error) {
	claims = claims.Normalize()
	if claims.JTI == "" {
		return "", fmt.Errorf("%w: empty jti", ErrInvalidClaims)
	}
	if !claims.Type.Valid() {
		return "", fmt.Errorf("%w: unknown token type %q", ErrInvalidClaims, claims.Type)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		return "", fmt.Errorf("%w: expiry must be after issuance", ErrInvalidClaims)
	}

	wire := wireClaims{
		Type: claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.Subject, 10),
			ID:        claims.JTI,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(c.method, wire).SignedString(c.signKey)
}

// Decode verifies the signature and expiry of token and returns its claims.
// Every failure is a *DecodeError; an expired token is only reported as such
// once its signature has verified.
func (c *Codec) Decode(token string) (Claims, error) {
	var wire wireClaims
	_, err := c.parser.ParseWithClaims(token, &wire, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, &DecodeError{Kind: DecodeExpired, Err: err}
		}
		return Claims{}, &DecodeError{Kind: DecodeMalformed, Err: err}
	}

	subject, err := strconv.ParseInt(wire.Subject, 10, 64)
	if err != nil {
		return Claims{}, &DecodeError{Kind: DecodeMalformed, Err: fmt.Errorf("invalid subject: %w", err)}
	}
	if wire.ID == "" {
		return Claims{}, &DecodeError{Kind: DecodeMalformed, Err: errors.New("missing jti")}
	}
	if !wire.Type.Valid() {
		return Claims{}, &DecodeError{Kind: DecodeMalformed, Err: fmt.Errorf("unknown token type %q", wire.Type)}
	}
	if wire.IssuedAt == nil {
		return Claims{}, &DecodeError{Kind: DecodeMalformed, Err: errors.New("missing iat")}
	}

	return Claims{
		Subject:   subject,
		JTI:       wire.ID,
		IssuedAt:  wire.IssuedAt.Time,
		ExpiresAt: wire.ExpiresAt.Time,
		Type:      wire.Type,
	}.Normalize(), nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
