package domain

// EvidenceKind identifies the signal that accompanies a transition request
type EvidenceKind string

const (
	EvidenceNone             EvidenceKind = ""
	EvidenceDocumentAttached EvidenceKind = "DOCUMENT_ATTACHED"
	EvidenceProofOfPayment   EvidenceKind = "PROOF_OF_PAYMENT"
	EvidenceApproval         EvidenceKind = "APPROVAL"
)

// IsValid reports whether the kind is known. EvidenceNone is valid.
func (k EvidenceKind) IsValid() bool {
	switch k {
	case EvidenceNone, EvidenceDocumentAttached, EvidenceProofOfPayment, EvidenceApproval:
		return true
	}
	return false
}

// Evidence is the optional signal supplied with a transition request
type Evidence struct {
	Kind       EvidenceKind `json:"kind"`
	DocumentID string       `json:"document_id,omitempty"`
	ActorID    string       `json:"actor_id,omitempty"`
}
