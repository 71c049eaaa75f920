package validate_test

import (
	"testing"

	"github.com/dxidlabs/ledger/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type stakeRequest struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"required,gt=0"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate request models.")
	{
		if err := validate.Check(stakeRequest{Address: "miner1", Amount: 10}); err != nil {
			t.Fatalf("\t%s\tShould accept a valid model: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a valid model.", success)

		err := validate.Check(stakeRequest{})
		if !validate.IsFieldErrors(err) {
			t.Fatalf("\t%s\tShould get field errors for an empty model: %v", failed, err)
		}
		t.Logf("\t%s\tShould get field errors for an empty model.", success)

		fields := validate.GetFieldErrors(err).Fields()
		if _, exists := fields["address"]; !exists {
			t.Fatalf("\t%s\tShould name the field by its json tag: %v", failed, fields)
		}
		t.Logf("\t%s\tShould name the field by its json tag.", success)

		if len(fields) != 2 {
			t.Fatalf("\t%s\tShould report both fields, got %d.", failed, len(fields))
		}
		t.Logf("\t%s\tShould report both fields.", success)
	}
}
