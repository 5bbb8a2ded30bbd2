package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func text(sender, body string) models.Message {
	return models.NewMessage(sender, models.Content{Text: body}, time.Now().UTC().Truncate(time.Millisecond))
}

func TestOpen_EmptyDirectory(t *testing.T) {
	req := require.New(t)
	s := openStore(t, t.TempDir())

	req.Empty(s.PublicMessages())
	req.Empty(s.Rooms())
	req.Empty(s.Conversation("x", "y"))
	req.Zero(s.MessageCount())
}

func TestAppendPublic_SurvivesReopen(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir})
	req.NoError(err)
	req.NoError(s.AppendPublic(text("alice", "one")))
	req.NoError(s.AppendPublic(text("bob", "two")))
	req.NoError(s.Close())

	reopened := openStore(t, dir)
	messages := reopened.PublicMessages()
	req.Len(messages, 2)
	req.Equal("one", messages[0].Message)
	req.Equal("two", messages[1].Message)
}

func TestOpen_CorruptCollectionStartsEmpty(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, PublicFile), []byte(`[{"username": "alice",`), 0o644))
	req.NoError(os.WriteFile(filepath.Join(dir, DirectFile), []byte(`[{"from":"x","to":"y","message":"hey"}]`), 0o644))

	s, err := Open(Options{Dir: dir})
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeStoreCorrupt))
	req.NotNil(s)
	defer s.Close()

	req.Empty(s.PublicMessages())
	req.Len(s.Conversation("y", "x"), 1)

	backup, readErr := os.ReadFile(filepath.Join(dir, PublicFile+".corrupt"))
	req.NoError(readErr)
	req.Contains(string(backup), "alice")

	// the service keeps working on the empty collection
	req.NoError(s.AppendPublic(text("bob", "fresh start")))
	req.Len(s.PublicMessages(), 1)
}

func TestOpen_WrongShapeIsCorrupt(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, RoomsFile), []byte(`{"id":"g1"}`), 0o644))

	s, err := Open(Options{Dir: dir})
	req.True(apperrors.HasCode(err, apperrors.CodeStoreCorrupt))
	defer s.Close()
	req.Empty(s.Rooms())
}

func TestAppendPublic_Cap(t *testing.T) {
	req := require.New(t)
	s, err := Open(Options{Dir: t.TempDir(), PublicCap: 2})
	req.NoError(err)
	defer s.Close()

	for _, body := range []string{"a", "b", "c"} {
		req.NoError(s.AppendPublic(text("alice", body)))
	}
	messages := s.PublicMessages()
	req.Len(messages, 2)
	req.Equal("b", messages[0].Message)
	req.Equal("c", messages[1].Message)
}

func TestAppendPublic_WriteFailureKeepsMemory(t *testing.T) {
	req := require.New(t)
	s := openStore(t, t.TempDir())
	req.NoError(s.public.file.Close())

	err := s.AppendPublic(text("alice", "lost on disk"))
	req.True(apperrors.HasCode(err, apperrors.CodeStoreWrite))
	req.Len(s.PublicMessages(), 1)
}

func TestRooms_CreateAndAppend(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	req.NoError(err)

	req.NoError(s.CreateRoom(models.Room{ID: "g1", Name: "general", Owner: "alice"}))
	req.ErrorIs(s.CreateRoom(models.Room{ID: "g1", Name: "other", Owner: "bob"}), apperrors.ErrRoomIDCollision)

	for i, body := range []string{"first", "second", "third"} {
		req.NoError(s.AppendRoom("g1", text("alice", body)))
		log, err := s.RoomMessages("g1")
		req.NoError(err)
		req.Len(log, i+1)
		req.Equal(body, log[i].Message)
	}
	req.ErrorIs(s.AppendRoom("missing", text("alice", "x")), apperrors.ErrRoomNotFound)
	req.NoError(s.SetMembers("g1", []string{"alice", "bob"}))
	req.NoError(s.Close())

	reopened := openStore(t, dir)
	rooms := reopened.Rooms()
	req.Len(rooms, 1)
	req.Equal([]string{"alice", "bob"}, rooms[0].Members)
	req.Nil(rooms[0].Messages)
	log, err := reopened.RoomMessages("g1")
	req.NoError(err)
	req.Len(log, 3)
	req.Equal(3, reopened.MessageCount())
}

func TestOpen_RestoresOwnerMembership(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	raw := `[{"id":"g1","name":"n","description":"","owner":"alice","members":["bob","bob"],"messages":[]}]`
	req.NoError(os.WriteFile(filepath.Join(dir, RoomsFile), []byte(raw), 0o644))

	s := openStore(t, dir)
	req.Equal([]string{"alice", "bob"}, s.Rooms()[0].Members)
}

func TestConversation_IsSymmetric(t *testing.T) {
	req := require.New(t)
	s := openStore(t, t.TempDir())
	now := time.Now().UTC()

	req.NoError(s.AppendDirect(models.NewDirectMessage("x", "y", models.Content{Text: "hey"}, now)))
	req.NoError(s.AppendDirect(models.NewDirectMessage("x", "z", models.Content{Text: "other"}, now)))
	req.NoError(s.AppendDirect(models.NewDirectMessage("y", "x", models.Content{Text: "yo"}, now)))
	req.ErrorIs(s.AppendDirect(models.NewDirectMessage("x", "x", models.Content{Text: "me"}, now)), apperrors.ErrSelfMessage)

	xy := s.Conversation("x", "y")
	req.Equal(xy, s.Conversation("y", "x"))
	req.Len(xy, 2)
	req.Equal("hey", xy[0].Message)
	req.Equal("x", xy[0].From)
	req.Equal("yo", xy[1].Message)
	req.Equal("y", xy[1].From)
}

func TestUsers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	req.NoError(s.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@zylo.chat"}))
	req.ErrorIs(s.CreateUser(ctx, &models.User{Username: "ALICE", Email: "other@zylo.chat"}), apperrors.ErrUsernameTaken)

	found, err := s.FindUser(ctx, "alice@zylo.chat")
	req.NoError(err)
	req.Equal("alice", found.Username)

	exists, err := s.UserExists(ctx, "alice")
	req.NoError(err)
	req.True(exists)
	exists, err = s.UserExists(ctx, "bob")
	req.NoError(err)
	req.False(exists)

	count, err := s.CountUsers(ctx)
	req.NoError(err)
	req.EqualValues(1, count)
}

func TestOpen_HashesLegacyPasswords(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, UsersFile)
	raw := `[{"username":"alice","email":"alice@zylo.chat","password":"hunter22"}]`
	req.NoError(os.WriteFile(path, []byte(raw), 0o644))

	s := openStore(t, dir)
	user, err := s.FindUser(context.Background(), "alice")
	req.NoError(err)
	req.Empty(user.LegacyPassword)
	req.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))

	data, err := os.ReadFile(path)
	req.NoError(err)
	req.NotContains(string(data), "hunter22")
	req.Contains(string(data), user.PasswordHash)
}
