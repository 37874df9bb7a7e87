package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// signatureFragmentLen is how much of the signature payload the
// certificate binds. Enough that substituting the image breaks
// verification, without hashing megabytes of encoded pixels.
const signatureFragmentLen = 100

// CertificateIssuer computes the non-repudiation digest for an accepted
// signature: SHA-256 over the document id, patient id, signing timestamp,
// a fragment of the signature payload, and the signer's IP. An offline
// verifier can recompute the digest from the preserved fields and compare.
type CertificateIssuer struct{}

func NewCertificateIssuer() *CertificateIssuer {
	return &CertificateIssuer{}
}

// Issue returns the certificate hash for the given signing facts. The
// same inputs always produce the same hash; changing any one changes it.
func (i *CertificateIssuer) Issue(documentID, patientID string, signedAt time.Time, signature, ip string) string {
	fragment := signature
	if len(fragment) > signatureFragmentLen {
		fragment = fragment[:signatureFragmentLen]
	}

	payload := strings.Join([]string{
		documentID,
		patientID,
		signedAt.UTC().Format(time.RFC3339),
		fragment,
		ip,
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
