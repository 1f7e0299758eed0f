package extract

// ParsePDF is a contract-only collaborator: bank and e-wallet statement
// parsing is handled outside this pipeline.
func ParsePDF(_ []byte) []RawEvent { return nil }

// ParseVoice is a contract-only collaborator.
func ParseVoice(_ []byte) []RawEvent { return nil }
