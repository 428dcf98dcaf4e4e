package game

import (
	"math/rand"
	"net"
	"testing"

	"go.uber.org/zap"

	"shengji/internal/domain"
	"shengji/internal/protocol"
	"shengji/internal/session"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(Options{
		MinPlayers: 2,
		MaxPlayers: 8,
		WithJokers: true,
		Rng:        rand.New(rand.NewSource(7)),
	}, zap.NewNop().Sugar())
	go c.Run()
	return c
}

func connectClient(t *testing.T, c *Controller) *testClient {
	t.Helper()
	serverEnd, clientEnd := net.Pipe()
	tc := newTestClient(t, clientEnd)
	c.AddConnection(session.NewFrameTransport(serverEnd))
	return tc
}

func TestControllerLobbyFlow(t *testing.T) {
	c := newTestController(t)

	tc0 := connectClient(t, c)
	welcome := tc0.await(protocol.ServerWelcome)
	if host, _ := welcome.GetBool("host"); !host {
		t.Fatal("first connection should be host")
	}

	tc1 := connectClient(t, c)
	welcome = tc1.await(protocol.ServerWelcome)
	if host, _ := welcome.GetBool("host"); host {
		t.Fatal("second connection should not be host")
	}
	joined := tc0.await(protocol.ServerPlayerJoined)
	if got, _ := joined.GetInt("player"); got != 1 {
		t.Fatalf("joined player = %d, want 1", got)
	}

	// Lobby commands other than starting are host-only.
	tc1.send(protocol.New(protocol.ClientStartRound))
	tc1.await(protocol.ServerInvalidRequest)

	tc1.send(protocol.New(protocol.ClientName).SetString("name", "dana"))
	renamed := tc0.await(protocol.ServerNameChanged)
	if name, _ := renamed.GetString("name"); name != "dana" {
		t.Fatalf("renamed to %q, want dana", name)
	}

	tc0.send(protocol.New(protocol.ClientSetRank).SetInt("player", 1).SetInt("delta", 1))
	changed := tc1.await(protocol.ServerRankChanged)
	if got, _ := changed.GetInt("rank"); domain.Rank(got) != domain.RankThree {
		t.Fatalf("adjusted rank = %v, want 3", domain.Rank(got))
	}

	// A downward correction wraps below Two instead of corrupting the rank.
	tc0.send(protocol.New(protocol.ClientSetRank).SetInt("player", 1).SetInt("delta", -2))
	changed = tc1.await(protocol.ServerRankChanged)
	if got, _ := changed.GetInt("rank"); domain.Rank(got) != domain.RankAce {
		t.Fatalf("adjusted rank = %v, want Ace", domain.Rank(got))
	}

	tc0.send(protocol.New(protocol.ClientPing))
	tc0.await(protocol.ServerPing)
}

func TestControllerStartAndAbort(t *testing.T) {
	c := newTestController(t)

	tc0 := connectClient(t, c)
	tc0.await(protocol.ServerWelcome)
	tc1 := connectClient(t, c)
	tc1.await(protocol.ServerWelcome)

	tc0.send(protocol.New(protocol.ClientStartRound))

	started := tc1.await(protocol.ServerRoundStarted)
	if got, _ := started.GetInt("decks"); got != 1 {
		t.Fatalf("decks = %d, want 1 for two players", got)
	}
	if got, _ := started.GetInt("points_needed"); got != 40 {
		t.Fatalf("points_needed = %d, want 40", got)
	}
	dealt := tc0.await(protocol.ServerHandDealt)
	if nums, _ := dealt.GetInts("cards"); len(nums) != 26 {
		t.Fatalf("hand size = %d, want 26", len(nums))
	}
	tc0.await(protocol.ServerMakeCall)
	tc1.await(protocol.ServerMakeCall)

	// A third connection mid-round is turned away, not seated.
	serverEnd, clientEnd := net.Pipe()
	late := newTestClient(t, clientEnd)
	c.AddConnection(session.NewFrameTransport(serverEnd))
	if _, ok := <-late.msgs; ok {
		t.Fatal("mid-round connection was seated")
	}

	// Dropping a player aborts the round and notifies the survivors.
	tc1.conn.Close()
	tc0.await(protocol.ServerPlayerDisconnected)

	select {
	case <-c.Done():
		t.Fatal("controller shut down on a plain disconnect")
	default:
	}
}
