package mail

// Groups holds recipient addresses sorted by role, each in input order.
type Groups struct {
	To  []string
	Cc  []string
	Bcc []string
}

// Classify sorts recipients into To, Cc and Bcc buckets.
//
// Recipients with an unrecognized role are placed in Cc. This mirrors the
// legacy sender and has not been confirmed as intended policy.
func Classify(recipients []Recipient) Groups {
	var g Groups
	for _, r := range recipients {
		switch r.Role {
		case RoleTo:
			g.To = append(g.To, r.Address)
		case RoleBcc:
			g.Bcc = append(g.Bcc, r.Address)
		default:
			g.Cc = append(g.Cc, r.Address)
		}
	}
	return g
}
