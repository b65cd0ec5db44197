package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NewRejection(t *testing.T) {
	type table struct {
		name   string
		err    error
		reason string
	}

	tt := []table{
		{name: "incomplete", err: database.ErrIncompleteAddress, reason: "incomplete_address"},
		{name: "too-large", err: database.ErrAmountTooLarge, reason: "amount_too_large"},
		{name: "unsigned", err: fmt.Errorf("%w: %w", database.ErrInvalidSignature, database.ErrMissingSignature), reason: "missing_signature"},
		{name: "forged", err: database.ErrInvalidSignature, reason: "invalid_signature"},
		{name: "unknown", err: errors.New("disk full"), reason: ""},
	}

	t.Log("Given the need to send ledger rejections back to clients.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s error.", testID, tst.name)
			{
				f := func(t *testing.T) {
					err := errs.NewRejection(tst.err)

					if tst.reason == "" {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould not trust an unknown error: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould not trust an unknown error.", success, testID)
						return
					}

					te := errs.GetTrusted(err)
					if te == nil || te.Status != http.StatusBadRequest || te.Reason != tst.reason {
						t.Fatalf("\t%s\tTest %d:\tShould get a bad request with reason %q: %+v", failed, testID, tst.reason, te)
					}
					t.Logf("\t%s\tTest %d:\tShould get a bad request with reason %q.", success, testID, tst.reason)

					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould keep the ledger error in the chain.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould keep the ledger error in the chain.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
