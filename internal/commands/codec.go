package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadPayload is returned when a callback payload cannot be decoded
// into a command.
var ErrBadPayload = errors.New("malformed callback payload")

// sep separates the action tag and fields in a callback payload.
const sep = "|"

// Decode parses a transport callback payload of the form
// "action|field|..." into a typed command. Fields never contain the
// separator except the trailing free-text field, which absorbs the
// rest of the payload.
func Decode(payload string) (Command, error) {
	parts := strings.Split(payload, sep)
	switch parts[0] {
	case "submit":
		// submit|listing|claimant|qty|pickup...
		if len(parts) < 5 {
			return nil, fmt.Errorf("%w: %q", ErrBadPayload, payload)
		}
		qty, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("%w: bad quantity %q", ErrBadPayload, parts[3])
		}
		return SubmitClaim{
			ListingID:  parts[1],
			ClaimantID: parts[2],
			Qty:        qty,
			PickupTime: strings.Join(parts[4:], sep),
		}, nil

	case "approve":
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadPayload, payload)
		}
		return Approve{ListingID: parts[1], ClaimID: parts[2]}, nil

	case "reject":
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadPayload, payload)
		}
		return Reject{ListingID: parts[1], ClaimID: parts[2]}, nil

	case "cancel":
		if len(parts) != 4 {
			return nil, fmt.Errorf("%w: %q", ErrBadPayload, payload)
		}
		return CancelClaim{ListingID: parts[1], ClaimID: parts[2], ClaimantID: parts[3]}, nil

	case "suggest":
		// suggest|listing|claim|newtime...
		if len(parts) < 4 {
			return nil, fmt.Errorf("%w: %q", ErrBadPayload, payload)
		}
		return ProposeReschedule{
			ListingID: parts[1],
			ClaimID:   parts[2],
			NewTime:   strings.Join(parts[3:], sep),
		}, nil

	case "accept_newtime", "decline_newtime":
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadPayload, payload)
		}
		return RespondReschedule{
			ListingID: parts[1],
			ClaimID:   parts[2],
			Accept:    parts[0] == "accept_newtime",
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrBadPayload, parts[0])
}

// Encode renders a command back into its callback payload form.
func Encode(cmd Command) string {
	switch c := cmd.(type) {
	case SubmitClaim:
		return strings.Join([]string{"submit", c.ListingID, c.ClaimantID, strconv.Itoa(c.Qty), c.PickupTime}, sep)
	case Approve:
		return strings.Join([]string{"approve", c.ListingID, c.ClaimID}, sep)
	case Reject:
		return strings.Join([]string{"reject", c.ListingID, c.ClaimID}, sep)
	case CancelClaim:
		return strings.Join([]string{"cancel", c.ListingID, c.ClaimID, c.ClaimantID}, sep)
	case ProposeReschedule:
		return strings.Join([]string{"suggest", c.ListingID, c.ClaimID, c.NewTime}, sep)
	case RespondReschedule:
		action := "decline_newtime"
		if c.Accept {
			action = "accept_newtime"
		}
		return strings.Join([]string{action, c.ListingID, c.ClaimID}, sep)
	}
	return ""
}
