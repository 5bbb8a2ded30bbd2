package rooms

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/zylo/internal/store"
	"github.com/thereayou/zylo/pkg/apperrors"
)

func newDirectory(t *testing.T, dir string, opts ...Option) (*Directory, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewDirectory(s, logs.GetLoggerFromLevel(slog.LevelDebug), opts...), s
}

func sequence(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestCreateRoom_OwnerIsMember(t *testing.T) {
	req := require.New(t)
	d, _ := newDirectory(t, t.TempDir())

	room, err := d.CreateRoom("alice", "general", "everyone")
	req.NoError(err)
	req.NotEmpty(room.ID)
	req.Equal([]string{"alice"}, room.Members)
	req.True(d.IsMember(room.ID, "alice"))
	req.False(d.IsMember(room.ID, "bob"))
}

func TestCreateRoom_RequiresOwnerAndName(t *testing.T) {
	d, _ := newDirectory(t, t.TempDir())

	_, err := d.CreateRoom("", "general", "")
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
	_, err = d.CreateRoom("alice", "  ", "")
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
}

func TestCreateRoom_RetriesOnCollision(t *testing.T) {
	req := require.New(t)
	d, _ := newDirectory(t, t.TempDir(), WithIDGenerator(sequence("g1", "g1", "g2")))

	first, err := d.CreateRoom("alice", "one", "")
	req.NoError(err)
	req.Equal("g1", first.ID)

	second, err := d.CreateRoom("bob", "two", "")
	req.NoError(err)
	req.Equal("g2", second.ID)

	room, err := d.Room("g1")
	req.NoError(err)
	req.Equal("alice", room.Owner)
}

func TestCreateRoom_CollisionExhausted(t *testing.T) {
	req := require.New(t)
	d, _ := newDirectory(t, t.TempDir(), WithIDGenerator(sequence("g1")))

	_, err := d.CreateRoom("alice", "one", "")
	req.NoError(err)
	_, err = d.CreateRoom("bob", "two", "")
	req.ErrorIs(err, apperrors.ErrRoomIDCollision)
	req.Equal(1, d.Count())
}

func TestJoin_IsIdempotent(t *testing.T) {
	req := require.New(t)
	d, _ := newDirectory(t, t.TempDir(), WithIDGenerator(sequence("g1")))
	_, err := d.CreateRoom("alice", "general", "")
	req.NoError(err)

	room, err := d.Join("g1", "bob")
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, room.Members)

	room, err = d.Join("g1", "bob")
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, room.Members)

	room, err = d.Join("g1", "alice")
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, room.Members)
}

func TestJoin_UnknownRoom(t *testing.T) {
	d, _ := newDirectory(t, t.TempDir())
	_, err := d.Join("nope", "bob")
	require.ErrorIs(t, err, apperrors.ErrRoomNotFound)
	require.False(t, d.IsMember("nope", "bob"))
}

func TestLeave(t *testing.T) {
	req := require.New(t)
	d, _ := newDirectory(t, t.TempDir(), WithIDGenerator(sequence("g1")))
	_, err := d.CreateRoom("alice", "general", "")
	req.NoError(err)
	_, err = d.Join("g1", "bob")
	req.NoError(err)

	req.NoError(d.Leave("g1", "bob"))
	req.False(d.IsMember("g1", "bob"))
	req.NoError(d.Leave("g1", "bob"))

	req.ErrorIs(d.Leave("g1", "alice"), apperrors.ErrOwnerCannotLeave)
	req.True(d.IsMember("g1", "alice"))
	req.ErrorIs(d.Leave("nope", "bob"), apperrors.ErrRoomNotFound)
}

func TestMembership_SurvivesRestart(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	d, s := newDirectory(t, dir, WithIDGenerator(sequence("g1")))
	_, err := d.CreateRoom("alice", "general", "")
	req.NoError(err)
	_, err = d.Join("g1", "bob")
	req.NoError(err)
	req.NoError(s.Close())

	reloaded, _ := newDirectory(t, dir)
	req.True(reloaded.IsMember("g1", "alice"))
	req.True(reloaded.IsMember("g1", "bob"))
	req.Len(reloaded.RoomsOf("bob"), 1)
	req.Empty(reloaded.RoomsOf("carol"))
}
