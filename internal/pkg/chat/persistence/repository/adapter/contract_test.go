package adapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/database"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	userport "github.com/LingwalAnkit/NavShiksha-Chat/internal/repository/port"
)

type store interface {
	repository.ChatRepository
	userport.UserRepository
}

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func stores(t *testing.T) map[string]store {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]store{
		"memory": NewMemoryChatRepository(),
		"sqlite": NewSqliteChatRepository(db),
	}
}

func seedUsers(t *testing.T, s store, ids ...string) {
	t.Helper()
	for i, id := range ids {
		u := chat.User{ID: id, Email: id + "@example.com", Name: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Upsert(context.Background(), u); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func newDirect(t *testing.T, s store, a, b string) *chat.Conversation {
	t.Helper()
	conv, members, err := chat.NewDirect(a, b, base)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateConversation(context.Background(), conv, members); err != nil {
		t.Fatal(err)
	}
	return conv
}

func save(t *testing.T, s store, convID, sender string, at time.Time) *chat.Message {
	t.Helper()
	body := "hello"
	m, err := chat.NewMessage(chat.Message{ConversationID: convID, SenderID: sender, Body: &body, CreatedAt: at})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMessage(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestUsers(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUsers(t, s, "a", "b", "c")

			u, err := s.FindByEmail(ctx, "B@EXAMPLE.COM")
			if err != nil || u.ID != "b" {
				t.Fatalf("find by email = %v, %v", u, err)
			}
			if _, err := s.FindByID(ctx, "ghost"); !errors.Is(err, chat.ErrNotFound) {
				t.Fatalf("missing user err = %v", err)
			}
			others, err := s.ListExcept(ctx, "a")
			if err != nil {
				t.Fatal(err)
			}
			if len(others) != 2 || others[0].ID != "c" || others[1].ID != "b" {
				t.Fatalf("roster = %+v, want newest first without caller", others)
			}
			if err := s.Upsert(ctx, chat.User{ID: "d", Email: "a@example.com", Name: "dup"}); !errors.Is(err, chat.ErrConflict) {
				t.Fatalf("duplicate email err = %v", err)
			}

			later := base.Add(time.Hour)
			if err := s.TouchLastSeen(ctx, "a", later); err != nil {
				t.Fatal(err)
			}
			if err := s.TouchLastSeen(ctx, "a", base); err != nil {
				t.Fatal(err)
			}
			u, _ = s.FindByID(ctx, "a")
			if u.LastSeenAt == nil || !u.LastSeenAt.Equal(later) {
				t.Fatalf("lastSeenAt moved backwards: %v", u.LastSeenAt)
			}
			if err := s.TouchLastSeen(ctx, "ghost", later); !errors.Is(err, chat.ErrNotFound) {
				t.Fatalf("touch unknown err = %v", err)
			}
		})
	}
}

func TestDirectPairIsUnique(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUsers(t, s, "a", "b")
			first := newDirect(t, s, "a", "b")

			dup, members, _ := chat.NewDirect("b", "a", base)
			if err := s.CreateConversation(ctx, dup, members); !errors.Is(err, chat.ErrConflict) {
				t.Fatalf("second create err = %v, want ErrConflict", err)
			}
			found, err := s.FindDirect(ctx, chat.DirectKeyFor("a", "b"))
			if err != nil || found.ID != first.ID {
				t.Fatalf("find direct = %v, %v", found, err)
			}
			if len(found.Members) != 2 {
				t.Fatalf("members = %+v", found.Members)
			}
			ok, err := s.IsParticipant(ctx, first.ID, "b")
			if err != nil || !ok {
				t.Fatalf("IsParticipant(b) = %v, %v", ok, err)
			}
			if ok, _ := s.IsParticipant(ctx, first.ID, "z"); ok {
				t.Fatal("stranger reported as participant")
			}
		})
	}
}

func TestMessagesAndLastMessage(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUsers(t, s, "a", "b", "c")
			conv := newDirect(t, s, "a", "b")
			other := newDirect(t, s, "a", "c")

			m1 := save(t, s, conv.ID, "a", base.Add(time.Minute))
			m2 := save(t, s, conv.ID, "b", base.Add(2*time.Minute))
			if m1.ID == "" || m2.Seq <= m1.Seq {
				t.Fatalf("ids/seq not assigned: %+v %+v", m1, m2)
			}
			if m2.Sender == nil || m2.Sender.ID != "b" || !m2.Seen.Has("b") {
				t.Fatalf("saved message not expanded: %+v", m2)
			}

			// Older timestamp does not move lastMessageAt back.
			save(t, s, conv.ID, "a", base.Add(30*time.Second))
			got, err := s.GetConversation(ctx, conv.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !got.LastMessageAt.Equal(m2.CreatedAt) || got.LastMessage == nil || got.LastMessage.ID != m2.ID {
				t.Fatalf("last message = %v at %v, want %s", got.LastMessage, got.LastMessageAt, m2.ID)
			}

			save(t, s, other.ID, "c", base.Add(time.Hour))
			convs, err := s.ListConversationsForUser(ctx, "a")
			if err != nil {
				t.Fatal(err)
			}
			if len(convs) != 2 || convs[0].ID != other.ID {
				t.Fatalf("conversations not ordered by lastMessageAt desc: %+v", convs)
			}

			latest, err := s.LatestMessage(ctx, conv.ID)
			if err != nil || latest.ID != m2.ID {
				t.Fatalf("latest = %v, %v", latest, err)
			}
		})
	}
}

func TestPaginationAndTies(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUsers(t, s, "a", "b")
			conv := newDirect(t, s, "a", "b")

			// Two messages share a timestamp; sequence breaks the tie.
			at := base.Add(time.Minute)
			var want []string
			for i, ts := range []time.Time{at, at, at.Add(time.Second), at.Add(2 * time.Second)} {
				sender := "a"
				if i%2 == 1 {
					sender = "b"
				}
				want = append([]string{save(t, s, conv.ID, sender, ts).ID}, want...)
			}

			var got []string
			var cursor *chat.Cursor
			for i := 0; i < 10; i++ {
				page, err := s.GetMessagesByConversation(ctx, conv.ID, cursor, 3)
				if err != nil {
					t.Fatal(err)
				}
				for _, m := range page {
					got = append(got, m.ID)
				}
				if len(page) < 3 {
					break
				}
				c := chat.CursorAfter(page[len(page)-1])
				cursor = &c
			}
			if len(got) != len(want) {
				t.Fatalf("paged %d messages, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("order = %v, want %v", got, want)
				}
			}
		})
	}
}

func TestAddSeenAndCascade(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUsers(t, s, "a", "b")
			conv := newDirect(t, s, "a", "b")
			m := save(t, s, conv.ID, "a", base.Add(time.Minute))

			changed, err := s.AddSeen(ctx, m.ID, "b", base.Add(2*time.Minute))
			if err != nil || !changed {
				t.Fatalf("first AddSeen = %v, %v", changed, err)
			}
			changed, err = s.AddSeen(ctx, m.ID, "b", base.Add(3*time.Minute))
			if err != nil || changed {
				t.Fatalf("repeat AddSeen = %v, %v", changed, err)
			}
			got, err := s.GetMessage(ctx, m.ID)
			if err != nil {
				t.Fatal(err)
			}
			if ids := got.Seen.UserIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
				t.Fatalf("seen = %v", ids)
			}
			if at, _ := got.Seen.SeenAt("b"); !at.Equal(base.Add(2 * time.Minute)) {
				t.Fatalf("seen time overwritten: %v", at)
			}
			if _, err := s.AddSeen(ctx, "missing", "b", base); !errors.Is(err, chat.ErrNotFound) {
				t.Fatalf("unknown message err = %v", err)
			}

			if err := s.DeleteConversation(ctx, conv.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := s.GetMessage(ctx, m.ID); !errors.Is(err, chat.ErrNotFound) {
				t.Fatalf("message survived delete: %v", err)
			}
			if err := s.DeleteConversation(ctx, conv.ID); !errors.Is(err, chat.ErrNotFound) {
				t.Fatalf("second delete err = %v", err)
			}
			if convs, _ := s.ListConversationsForUser(ctx, "a"); len(convs) != 0 {
				t.Fatalf("conversations after delete = %+v", convs)
			}
		})
	}
}
