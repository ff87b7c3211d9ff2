package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Signer computes and checks gateway integrity hashes with the shared integrity key.
type Signer struct {
	integrityKey string
}

func NewSigner(integrityKey string) Signer {
	return Signer{integrityKey: integrityKey}
}

// ChargeSignature is sent with a new charge so the gateway can tell it came from us.
func (s Signer) ChargeSignature(reference string, amount int64, currency string) string {
	return hashHex(reference + strconv.FormatInt(amount, 10) + currency + s.integrityKey)
}

// WebhookChecksum is the checksum the gateway is expected to send for e.
func (s Signer) WebhookChecksum(e WebhookEvent) (string, error) {
	values, err := e.SignedValues()
	if err != nil {
		return "", err
	}
	return hashHex(strings.Join(values, "") + strconv.FormatInt(e.Timestamp, 10) + s.integrityKey), nil
}

func (s Signer) VerifyWebhook(e WebhookEvent) error {
	want, err := s.WebhookChecksum(e)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	got := strings.ToLower(strings.TrimSpace(e.Signature.Checksum))
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrSignatureInvalid
	}
	return nil
}

func hashHex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
