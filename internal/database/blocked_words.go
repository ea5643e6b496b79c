package database

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const blockedWordsURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedBlockedWords fetches and seeds the blocked words list used for
// nickname screening. Seeding is skipped when the table is already populated.
func (db *DB) SeedBlockedWords() error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM blocked_words").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check blocked words count: %w", err)
	}

	if count > 0 {
		log.Printf("Nickname filter already populated with %d words", count)
		return nil
	}

	log.Println("Downloading blocked words list...")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(blockedWordsURL)
	if err != nil {
		return fmt.Errorf("failed to download blocked words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from blocked words URL: %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	wordsAdded := 0

	// Bulk insert inside a single transaction
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := "INSERT INTO blocked_words (word) VALUES (?)"
	rewrittenQuery := db.Dialect.RewriteQuery(insertQuery)

	stmt, err := tx.Prepare(rewrittenQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for scanner.Scan() {
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word == "" {
			continue
		}

		_, err := stmt.Exec(word)
		if err != nil {
			// Skip duplicates, continue adding others
			continue
		}
		wordsAdded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading blocked words: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Nickname filter populated with %d words", wordsAdded)
	return nil
}

// NicknameAllowed reports whether a nickname passes the blocked words
// screen. Every whitespace-separated token of the normalized nickname is
// checked individually so that compound nicknames cannot smuggle a
// blocked word through.
func (db *DB) NicknameAllowed(nickname string) (bool, error) {
	for _, token := range strings.Fields(strings.ToLower(nickname)) {
		var count int
		query := "SELECT COUNT(*) FROM blocked_words WHERE word = ?"
		err := db.QueryRow(query, token).Scan(&count)
		if err != nil {
			return false, fmt.Errorf("failed to check blocked word: %w", err)
		}
		if count > 0 {
			return false, nil
		}
	}
	return true, nil
}
