package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"messenger-lab/domain"
	"messenger-lab/errors"
	"messenger-lab/storage"
)

type IMessageRepository interface {
	Create(senderID, receiverID, content string, msgType domain.MessageType) (domain.Message, error)
	FetchAndAcknowledge(userID, peerID string, page, pageSize int) ([]domain.Message, error)
	MarkRead(fromUserID, toUserID string) (int, error)
	DeleteOwned(messageID, requesterID string) (domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// maxTxnRetries bounds the optimistic-conflict retry loop. Conversation
// traffic routinely touches the same unread entries from two sides (a
// history fetch racing a mark-read on the same conversation), so a
// conflicted transaction is rerun against the committed state instead
// of surfacing as an error.
const maxTxnRetries = 10

func (r *MessageRepository) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.Debug("transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}

// Key layout:
//
//	msg:{lo}:{hi}:{timestamp_padded}:{uuid} -> CBOR(domain.Message)
//	msgid:{uuid}                            -> primary key
//	unread:{receiver}:{sender}:{ts}:{uuid}  -> primary key
//	peer:{user}:{peer}                      -> nil
//
// (lo,hi) is the lexicographically sorted pair of participant IDs, so
// both directions of a conversation share one prefix. The 19-digit
// zero-padded UnixNano keeps prefix scans in chronological order; the
// trailing UUID disambiguates two messages in the same nanosecond.
func conversationPrefix(a, b string) string {
	low, high := orderedPair(a, b)
	return fmt.Sprintf("msg:%s:%s:", low, high)
}

func primaryKey(m domain.Message) []byte {
	low, high := orderedPair(m.SenderID, m.ReceiverID)
	return []byte(fmt.Sprintf("msg:%s:%s:%019d:%s", low, high, m.CreatedAt.UnixNano(), m.ID))
}

func idKey(id string) []byte { return []byte("msgid:" + id) }

func unreadPrefix(receiverID, senderID string) string {
	return fmt.Sprintf("unread:%s:%s:", receiverID, senderID)
}

func unreadKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("unread:%s:%s:%019d:%s",
		m.ReceiverID, m.SenderID, m.CreatedAt.UnixNano(), m.ID))
}

func peerKey(userID, peerID string) []byte {
	return []byte("peer:" + userID + ":" + peerID)
}

func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Create validates and persists a new message with isRead=false and a
// server-assigned creation time. It fails with a not-found error when
// the receiver is unknown to the directory.
func (r *MessageRepository) Create(senderID, receiverID, content string, msgType domain.MessageType) (domain.Message, error) {
	content, err := domain.ValidateContent(content)
	if err != nil {
		return domain.Message{}, err
	}
	if !msgType.Valid() {
		return domain.Message{}, errors.ErrUnknownMessageType
	}

	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       msgType,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := storage.Marshal(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	pk := primaryKey(message)
	err = r.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(receiverID)); err != nil {
			return errors.ErrNotFound
		}
		if err := txn.Set(pk, data); err != nil {
			return err
		}
		if err := txn.Set(idKey(message.ID.String()), pk); err != nil {
			return err
		}
		if err := txn.Set(unreadKey(message), pk); err != nil {
			return err
		}
		if err := txn.Set(peerKey(senderID, receiverID), nil); err != nil {
			return err
		}
		return txn.Set(peerKey(receiverID, senderID), nil)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// FetchAndAcknowledge returns one page of the conversation between
// userID and peerID in chronological order. Pagination walks the
// storage newest-first and the page is reversed before returning.
//
// Fetching is defined to also acknowledge: every unread message from
// peerID to userID is marked read in the same transaction. The returned
// page still shows the read flags from before the acknowledgment, the
// way the caller found them.
func (r *MessageRepository) FetchAndAcknowledge(userID, peerID string, page, pageSize int) ([]domain.Message, error) {
	if page < 1 || pageSize < 1 {
		return nil, errors.ErrInvalidPagination
	}
	var messages []domain.Message
	err := r.update(func(txn *badger.Txn) error {
		// A rerun after a conflict starts from scratch.
		messages = messages[:0]
		prefix := []byte(conversationPrefix(userID, peerID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)

		// Seek past the newest possible padded timestamp, then walk
		// backwards: newest message first.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		skip := (page - 1) * pageSize
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if skip > 0 {
				skip--
				continue
			}
			if len(messages) == pageSize {
				break
			}
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				return storage.Unmarshal(val, &message)
			})
			if err != nil {
				it.Close()
				return err
			}
			messages = append(messages, message)
		}
		it.Close()

		_, err := acknowledge(txn, userID, peerID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

// MarkRead bulk-sets isRead on every unread message from fromUserID to
// toUserID and reports how many were updated. It is idempotent: a
// repeated call finds an empty unread index and updates nothing.
//
// A message arriving concurrently may miss this update's window; that
// is an accepted eventual-consistency gap, caught by the next fetch or
// mark-read call.
func (r *MessageRepository) MarkRead(fromUserID, toUserID string) (int, error) {
	var updated int
	err := r.update(func(txn *badger.Txn) error {
		var err error
		updated, err = acknowledge(txn, toUserID, fromUserID, time.Now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// DeleteOwned removes a message if and only if the requester is its
// sender. Any other outcome (unknown id, foreign message) is reported
// as not-found so existence is never leaked to non-owners.
func (r *MessageRepository) DeleteOwned(messageID, requesterID string) (domain.Message, error) {
	var message domain.Message
	err := r.update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(messageID))
		if err != nil {
			return errors.ErrNotFound
		}
		pk, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(pk)
		if err != nil {
			return errors.ErrNotFound
		}
		if err := item.Value(func(val []byte) error {
			return storage.Unmarshal(val, &message)
		}); err != nil {
			return err
		}
		if message.SenderID != requesterID {
			return errors.ErrNotFound
		}
		if err := txn.Delete(pk); err != nil {
			return err
		}
		if err := txn.Delete(idKey(messageID)); err != nil {
			return err
		}
		if !message.IsRead {
			return txn.Delete(unreadKey(message))
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// acknowledge collects the unread index for (receiver, sender), flips
// each referenced message to read with readAt=at, and drops the index
// entries. Collection happens before mutation so the iterator never
// observes its own writes.
func acknowledge(txn *badger.Txn, receiverID, senderID string, at time.Time) (int, error) {
	prefix := []byte(unreadPrefix(receiverID, senderID))
	var indexKeys, primaryKeys [][]byte

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		pk, err := item.ValueCopy(nil)
		if err != nil {
			it.Close()
			return 0, err
		}
		indexKeys = append(indexKeys, item.KeyCopy(nil))
		primaryKeys = append(primaryKeys, pk)
	}
	it.Close()

	for i, pk := range primaryKeys {
		item, err := txn.Get(pk)
		if err != nil {
			return 0, err
		}
		var message domain.Message
		if err := item.Value(func(val []byte) error {
			return storage.Unmarshal(val, &message)
		}); err != nil {
			return 0, err
		}
		message.IsRead = true
		readAt := at
		message.ReadAt = &readAt
		data, err := storage.Marshal(message)
		if err != nil {
			return 0, err
		}
		if err := txn.Set(pk, data); err != nil {
			return 0, err
		}
		if err := txn.Delete(indexKeys[i]); err != nil {
			return 0, err
		}
	}
	return len(primaryKeys), nil
}
