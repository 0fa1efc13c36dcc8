package asr

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// wordBoundary is the SentencePiece word-boundary marker (▁, U+2581).
const wordBoundary = '▁'

// Tokenizer maps token IDs to text, loaded from a tokens.txt vocabulary
// file, matching original_source/src/memoire-stt/src/tokenizer.rs.
type Tokenizer struct {
	idToToken map[int32]string
	blankID   int32
	vocabSize int
}

// LoadTokenizer parses tokens.txt content. Each line is "token_string
// token_id"; the id is always the trailing whitespace-delimited field, so
// a token string may itself contain spaces. A token literally named
// "<blk>" or "<blank>" is the blank id; otherwise the blank id defaults to
// the maximum id seen.
func LoadTokenizer(r io.Reader) (*Tokenizer, error) {
	idToToken := make(map[int32]string)
	maxID := int32(-1)
	blankID := int32(-1)
	haveBlank := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sep := strings.LastIndexByte(line, ' ')
		if sep < 0 {
			continue
		}
		token := line[:sep]
		idStr := line[sep+1:]
		id64, err := strconv.ParseInt(idStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("asr: parse token id %q: %w", idStr, err)
		}
		id := int32(id64)

		if token == "<blk>" || token == "<blank>" {
			blankID = id
			haveBlank = true
		}
		if id > maxID {
			maxID = id
		}
		idToToken[id] = token
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asr: read tokens: %w", err)
	}

	if !haveBlank {
		blankID = maxID
	}

	return &Tokenizer{
		idToToken: idToToken,
		blankID:   blankID,
		vocabSize: int(maxID) + 1,
	}, nil
}

// BlankID returns the vocabulary's blank token id.
func (t *Tokenizer) BlankID() int32 { return t.blankID }

// VocabSize returns the vocabulary size (max id + 1).
func (t *Tokenizer) VocabSize() int { return t.vocabSize }

// Decode converts a token id sequence to text: blanks are skipped, ▁ is
// replaced with a space in each token, and the result is trimmed.
func (t *Tokenizer) Decode(tokens []int32) string {
	var sb strings.Builder
	for _, id := range tokens {
		if id == t.blankID {
			continue
		}
		if token, ok := t.idToToken[id]; ok {
			sb.WriteString(strings.ReplaceAll(token, string(wordBoundary), " "))
		}
	}
	return strings.TrimSpace(sb.String())
}

// WordSegment is a word-level transcript span with its time bounds in
// seconds.
type WordSegment struct {
	Word  string
	Start float64
	End   float64
}

// DecodeWithTimestamps groups tokens into word segments using the ▁
// boundary marker, converting each token's encoder-frame timestamp to
// seconds via frameDurationMs.
func (t *Tokenizer) DecodeWithTimestamps(tokens []int32, timestamps []int32, frameDurationMs float64) []WordSegment {
	if len(tokens) == 0 {
		return nil
	}

	var segments []WordSegment
	var currentWord strings.Builder
	var wordStart float64
	haveStart := false
	wordEnd := 0.0

	flush := func() {
		if currentWord.Len() > 0 && haveStart {
			segments = append(segments, WordSegment{Word: currentWord.String(), Start: wordStart, End: wordEnd})
		}
		currentWord.Reset()
		haveStart = false
	}

	for i, id := range tokens {
		if id == t.blankID {
			continue
		}
		var ts int32
		if i < len(timestamps) {
			ts = timestamps[i]
		}
		timeSec := float64(ts) * frameDurationMs / 1000

		token, ok := t.idToToken[id]
		if !ok {
			continue
		}

		startsWord := strings.HasPrefix(token, string(wordBoundary))
		if startsWord && currentWord.Len() > 0 {
			flush()
		}

		clean := strings.ReplaceAll(token, string(wordBoundary), "")
		if clean != "" {
			if !haveStart {
				wordStart = timeSec
				haveStart = true
			}
			currentWord.WriteString(clean)
			wordEnd = timeSec
		}
	}
	flush()

	return segments
}
