// Command sunwatch-import loads a sun-events JSON file into the SQLite
// database the server reads from.  It is the inverse of the extractor that
// produces the JSON in the first place, useful when promoting a fresh year of
// event data to a sqlite-backed deployment:
//
//	sunwatch-import -events ./config/sun_events.json -db ./data/sunwatch.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/mkarlsen/sunwatch/internal/db"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store/jsonfile"
	sqlitestore "github.com/mkarlsen/sunwatch/internal/sunwatch/store/sqlite"
)

func main() {
	eventsPath := flag.String("events", "./config/sun_events.json", "sun-events JSON file to import")
	dbPath := flag.String("db", "./data/sunwatch.db", "target SQLite database")
	flag.Parse()

	logger := log.New(os.Stderr, "sunwatch-import ", log.LstdFlags)

	if err := run(*eventsPath, *dbPath, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(eventsPath, dbPath string, logger *log.Logger) error {
	ctx := context.Background()

	js, err := jsonfile.New(eventsPath, logger)
	if err != nil {
		return err
	}

	conn, err := db.Open(ctx, db.Config{Path: dbPath})
	if err != nil {
		return err
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	es := sqlitestore.NewEventStore(conn, writer)

	imported := 0
	for _, ev := range js.All() {
		if err := es.UpsertEvent(ctx, ev); err != nil {
			return fmt.Errorf("import %s: %w", ev.Date.Format("2006-01-02"), err)
		}
		imported++
	}

	logger.Printf("imported %d dates from %s into %s", imported, eventsPath, dbPath)
	return nil
}
