package provider

import (
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"sort"
	"strings"
)

const SignatureField = "signature"

// SignatureCodec builds the gateway's canonical parameter string and signs it
// with the configured digest.
type SignatureCodec struct {
	alg    Algorithm
	digest func() hash.Hash
}

func NewSignatureCodec(alg Algorithm) (*SignatureCodec, error) {
	digest, err := defaultRegistry.Get(alg)
	if err != nil {
		return nil, err
	}
	return &SignatureCodec{
		alg:    Algorithm(strings.ToLower(strings.TrimSpace(string(alg)))),
		digest: digest,
	}, nil
}

func (c *SignatureCodec) Algorithm() Algorithm {
	return c.alg
}

// ParamString returns key=value pairs sorted by key bytes and joined by "&".
// A non-empty passphrase is appended last as its own pair.
func (c *SignatureCodec) ParamString(fields map[string]string, passphrase string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if key == SignatureField {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(FormEncode(fields[key]))
	}
	if passphrase != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString("passphrase=")
		b.WriteString(FormEncode(passphrase))
	}
	return b.String()
}

func (c *SignatureCodec) Compute(fields map[string]string, passphrase string) string {
	h := c.digest()
	_, _ = h.Write([]byte(c.ParamString(fields, passphrase)))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *SignatureCodec) Verify(fields map[string]string, claimed, passphrase string) bool {
	claimed = strings.ToLower(strings.TrimSpace(claimed))
	if claimed == "" {
		return false
	}
	expected := c.Compute(fields, passphrase)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(claimed)) == 1
}

const upperHex = "0123456789ABCDEF"

// FormEncode applies the gateway's form encoding: ASCII letters, digits and
// "-_." are kept, space becomes "+", every other byte is percent-encoded with
// upper-case hex.
func FormEncode(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '-', ch == '_', ch == '.':
			b.WriteByte(ch)
		case ch == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[ch>>4])
			b.WriteByte(upperHex[ch&0x0F])
		}
	}
	return b.String()
}
