package validate_test

import (
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/validate"
)

func Test_Check(t *testing.T) {
	type table struct {
		name   string
		peer   peer.Peer
		fields []string
	}

	tt := []table{
		{name: "valid", peer: peer.New("10.0.0.1", 8081)},
		{name: "address", peer: peer.New("", 8081), fields: []string{"address"}},
		{name: "port", peer: peer.New("10.0.0.1", 0), fields: []string{"port"}},
		{name: "both", peer: peer.Peer{Port: 70000}, fields: []string{"address", "port"}},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			err := validate.Check(tst.peer)

			if len(tst.fields) == 0 {
				if err != nil {
					t.Fatalf("Test %s:\tShould pass validation: %s", tst.name, err)
				}
				return
			}

			if !validate.IsFieldErrors(err) {
				t.Fatalf("Test %s:\tShould get back field errors: %v", tst.name, err)
			}

			fields := validate.GetFieldErrors(err).Fields()
			if len(fields) != len(tst.fields) {
				t.Fatalf("Test %s:\tShould get back %d field errors: %v", tst.name, len(tst.fields), fields)
			}

			for _, name := range tst.fields {
				if _, exists := fields[name]; !exists {
					t.Fatalf("Test %s:\tShould get back an error for %q: %v", tst.name, name, fields)
				}
			}
		}

		t.Run(tst.name, f)
	}
}
