package engine

type ClaimType string

const (
	ClaimFirstFive  ClaimType = "FIRST_FIVE"
	ClaimFirstLine  ClaimType = "FIRST_LINE"
	ClaimMiddleLine ClaimType = "MIDDLE_LINE"
	ClaimLastLine   ClaimType = "LAST_LINE"
	ClaimFullHouse  ClaimType = "FULL_HOUSE"
)

var ClaimTypes = []ClaimType{
	ClaimFirstFive,
	ClaimFirstLine,
	ClaimMiddleLine,
	ClaimLastLine,
	ClaimFullHouse,
}

func ParseClaimType(s string) (ClaimType, bool) {
	for _, ct := range ClaimTypes {
		if string(ct) == s {
			return ct, true
		}
	}
	return "", false
}

// Evaluate reports whether claimType is currently satisfied by the ticket
// against the called-number set. Pure membership check: a player's own
// marking bookkeeping never enters into it.
func Evaluate(claimType ClaimType, t Ticket, called map[int]bool) bool {
	switch claimType {
	case ClaimFirstFive:
		hit := 0
		for _, n := range t.Numbers() {
			if called[n] {
				hit++
				if hit >= 5 {
					return true
				}
			}
		}
		return false
	case ClaimFirstLine:
		return rowCovered(t, 0, called)
	case ClaimMiddleLine:
		return rowCovered(t, 1, called)
	case ClaimLastLine:
		return rowCovered(t, 2, called)
	case ClaimFullHouse:
		for _, n := range t.Numbers() {
			if !called[n] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func rowCovered(t Ticket, r int, called map[int]bool) bool {
	for _, n := range t.Row(r) {
		if !called[n] {
			return false
		}
	}
	return true
}
