/*
Package client provides a Go client library for the murmur HTTP API.

The client wraps every backend endpoint with a typed method, handles
JSON and multipart encoding, and decodes the backend's error contract
into APIError values.

# Usage

	import "github.com/murmurnotes/murmur/pkg/client"

	c := client.New("http://127.0.0.1:8487")

	note, err := c.CreateNote("meetings", "standup", "", "")
	if err != nil {
		return err
	}

	audio, _ := os.Open("standup.wav")
	defer audio.Close()
	job, err := c.CreateJob(note.NoteID, "[[tx:abc123]]", "drop", "standup.wav", audio)

# Error Handling

Non-2xx responses come back as *APIError carrying the HTTP status and
the backend's machine code:

	_, err := c.GetNote("missing.txt")
	if client.IsNotFound(err) {
		// create it
	}

A stale expected revision on UpdateNote surfaces as an APIError with
code revision_conflict; the caller re-fetches and merges.

# Timeouts

JSON endpoints use a 10 second timeout. The audio endpoints block on
speech-to-text for synchronous transcription, so uploads get their own
10 minute ceiling.
*/
package client
