package prescription

// Verdict is the outcome of recomputing a stored record's digest.
type Verdict string

const (
	VerdictMatch    Verdict = "MATCH"
	VerdictMismatch Verdict = "MISMATCH"
	// VerdictUnhashed marks rows that never had a digest; it is not a mismatch.
	VerdictUnhashed Verdict = "UNHASHED"
)

// Verify recomputes the digest two ways: from the stored columns joined with
// the payload's medication list, and from the payload alone. Both must equal
// the stored digest. A payload that cannot be decoded is a mismatch.
func Verify(columns Record, payload []byte, storedHash string) Verdict {
	if storedHash == "" {
		return VerdictUnhashed
	}

	fromPayload, err := FromPayload(payload)
	if err != nil {
		return VerdictMismatch
	}

	payloadHash, err := fromPayload.ContentHash()
	if err != nil || payloadHash != storedHash {
		return VerdictMismatch
	}

	joined := columns
	joined.Meds = fromPayload.Meds
	columnsHash, err := joined.ContentHash()
	if err != nil || columnsHash != storedHash {
		return VerdictMismatch
	}

	return VerdictMatch
}
