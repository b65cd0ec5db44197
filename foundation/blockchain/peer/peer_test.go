package peer_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host2"}, {Host: "host3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add the same peer twice.", tst.name)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("host2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			ps.Remove(tst.peers[0])
			peers = ps.Copy("")
			if len(peers) != len(tst.peers)-1 || peers[0] != tst.peers[1] {
				t.Logf("Test %s:\tgot: %v", tst.name, peers)
				t.Fatalf("Test %s:\tShould get back the sorted peers without the removed peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_New(t *testing.T) {
	tt := []struct {
		host string
		exp  string
	}{
		{host: "localhost:9080", exp: "localhost:9080"},
		{host: "ws://localhost:9080", exp: "localhost:9080"},
		{host: "http://localhost:9080/", exp: "localhost:9080"},
	}

	for _, tst := range tt {
		if got := peer.New(tst.host); got.Host != tst.exp {
			t.Logf("got: %s", got.Host)
			t.Logf("exp: %s", tst.exp)
			t.Fatalf("Should normalize host %q.", tst.host)
		}
	}
}
