// Command badger_inspect dumps the contents of a messenger database as
// a table. Values under msg: and user: prefixes are decoded; index
// entries (msgid:, unread:, peer:, email:, name:) are listed raw so a
// broken reference is visible next to the document it points at.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"messenger-lab/domain"
	"messenger-lab/storage"
)

func main() {
	dbPath := flag.String("db", "/tmp/messenger/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "From", "To", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append(rowFor(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func rowFor(key string, val []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m domain.Message
		if err := storage.Unmarshal(val, &m); err != nil {
			return []string{key, "BROKEN", "--:--:--", "-", "-", err.Error()}
		}
		detail := m.Content
		if len(detail) > 40 {
			detail = detail[:40] + "…"
		}
		if m.IsRead {
			detail += " [read]"
		}
		return []string{
			key,
			strings.ToUpper(string(m.Type)),
			m.CreatedAt.Format("15:04:05"),
			short(m.SenderID),
			short(m.ReceiverID),
			detail,
		}
	case strings.HasPrefix(key, "user:"):
		var u domain.User
		if err := storage.Unmarshal(val, &u); err != nil {
			return []string{key, "BROKEN", "--:--:--", "-", "-", err.Error()}
		}
		status := "offline"
		if u.IsOnline {
			status = "online"
		}
		return []string{
			key,
			"USER",
			u.CreatedAt.Format("15:04:05"),
			short(u.ID),
			"-",
			fmt.Sprintf("%s <%s> %s", u.Username, u.Email, status),
		}
	default:
		// Index entries carry their meaning in the key itself.
		return []string{key, "INDEX", "--:--:--", "-", "-",
			fmt.Sprintf("-> %s", string(val))}
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
