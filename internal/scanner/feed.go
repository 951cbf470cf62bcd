package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FeedAttachment references one PDF attachment in the inbox feed.
type FeedAttachment struct {
	FileName   string
	SourcePath string
}

// FeedMessage is one inbox message from the JSON feed.
type FeedMessage struct {
	MessageID        string
	FolderPath       string
	ReceivedDatetime *string
	SenderAddress    *string
	Subject          *string
	Attachments      []FeedAttachment
}

type rawFeedMessage struct {
	MessageID        string `json:"message_id"`
	FolderPath       string `json:"folder_path"`
	ReceivedDatetime string `json:"received_datetime"`
	SenderAddress    string `json:"sender_address"`
	Subject          string `json:"subject"`
	Attachments      []struct {
		FileName   string `json:"file_name"`
		SourceFile string `json:"source_file"`
	} `json:"attachments"`
}

// LoadFeed reads the inbox JSON feed and resolves attachment paths
// against attachmentsDir. Folder order follows trackedFolders and each
// folder is capped at maxItemsPerFolder. Non-PDF and incomplete
// attachment entries are dropped; a referenced-but-missing attachment
// file is an input error for that message's documents, surfaced later as
// FILE_MISSING, not a feed failure.
func LoadFeed(feedPath, attachmentsDir string, trackedFolders []string, maxItemsPerFolder int) ([]FeedMessage, error) {
	data, err := os.ReadFile(feedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox feed %s: %w", feedPath, err)
	}

	var raw []rawFeedMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse inbox feed %s: %w", feedPath, err)
	}

	byFolder := make(map[string][]rawFeedMessage)
	for _, m := range raw {
		folder := strings.TrimSpace(m.FolderPath)
		if folder == "" {
			folder = "Inbox"
		}
		byFolder[folder] = append(byFolder[folder], m)
	}

	var messages []FeedMessage
	for _, folder := range trackedFolders {
		items := byFolder[folder]
		if len(items) > maxItemsPerFolder {
			items = items[:maxItemsPerFolder]
		}

		for _, m := range items {
			mid := strings.TrimSpace(m.MessageID)
			if mid == "" {
				mid = fmt.Sprintf("MSG-%04d", len(messages)+1)
			}

			msg := FeedMessage{
				MessageID:        mid,
				FolderPath:       folder,
				ReceivedDatetime: optional(m.ReceivedDatetime),
				SenderAddress:    optional(m.SenderAddress),
				Subject:          optional(m.Subject),
			}

			for _, a := range m.Attachments {
				fileName := strings.TrimSpace(a.FileName)
				srcFile := strings.TrimSpace(a.SourceFile)
				if fileName == "" || srcFile == "" {
					continue
				}
				if !strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
					continue
				}

				msg.Attachments = append(msg.Attachments, FeedAttachment{
					FileName:   fileName,
					SourcePath: filepath.Join(attachmentsDir, srcFile),
				})
			}

			messages = append(messages, msg)
		}
	}

	return messages, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
