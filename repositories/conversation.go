package repositories

import (
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"messenger-lab/domain"
	"messenger-lab/storage"
)

type IConversationRepository interface {
	Summarize(userID string) ([]domain.ConversationSummary, error)
}

// ConversationRepository derives per-peer conversation summaries from
// the message and user documents. It is strictly read-only: a summary
// request never mutates message state.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

// Summarize returns one entry per peer the user has ever exchanged a
// message with: the most recent message in either direction plus the
// count of unread messages addressed to the user, most recent first.
// Peers with equal last-message times keep their index iteration order,
// which is deterministic for a given store content.
func (r *ConversationRepository) Summarize(userID string) ([]domain.ConversationSummary, error) {
	var summaries []domain.ConversationSummary
	err := r.db.View(func(txn *badger.Txn) error {
		for _, peerID := range peers(txn, userID) {
			last, ok, err := latestMessage(txn, userID, peerID)
			if err != nil {
				return err
			}
			if !ok {
				// Peer entry survives after its last message was
				// deleted; nothing left to summarize.
				continue
			}
			var peer domain.User
			if err := readUser(txn, peerID, &peer); err != nil {
				r.log.Warn("conversation peer missing from directory", "peer_id", peerID)
				continue
			}
			summaries = append(summaries, domain.ConversationSummary{
				PeerID:             peerID,
				Username:           peer.Username,
				Email:              peer.Email,
				IsOnline:           peer.IsOnline,
				LastSeenAt:         peer.LastSeenAt,
				LastMessageContent: last.Content,
				LastMessageAt:      last.CreatedAt,
				UnreadCount:        countPrefix(txn, unreadPrefix(userID, peerID)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries, nil
}

func peers(txn *badger.Txn, userID string) []string {
	prefix := []byte("peer:" + userID + ":")
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids
}

func latestMessage(txn *badger.Txn, userID, peerID string) (domain.Message, bool, error) {
	prefix := []byte(conversationPrefix(userID, peerID))
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	it := txn.NewIterator(options)
	defer it.Close()

	seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
	it.Seek(seekKey)
	if !it.ValidForPrefix(prefix) {
		return domain.Message{}, false, nil
	}
	var message domain.Message
	err := it.Item().Value(func(val []byte) error {
		return storage.Unmarshal(val, &message)
	})
	if err != nil {
		return domain.Message{}, false, err
	}
	return message, true, nil
}

func countPrefix(txn *badger.Txn, prefix string) int {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	count := 0
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		count++
	}
	return count
}
