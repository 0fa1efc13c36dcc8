package asr

import (
	"strings"
	"testing"
)

const sampleVocab = `<unk> 0
▁t 1
▁th 2
▁a 3
in 4
▁the 5
<blk> 6`

func TestLoadTokenizer_ParsesVocabAndBlank(t *testing.T) {
	tok, err := LoadTokenizer(strings.NewReader(sampleVocab))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}
	if tok.VocabSize() != 7 {
		t.Errorf("VocabSize() = %d, want 7", tok.VocabSize())
	}
	if tok.BlankID() != 6 {
		t.Errorf("BlankID() = %d, want 6", tok.BlankID())
	}
}

func TestLoadTokenizer_BlankDefaultsToMaxID(t *testing.T) {
	content := "<unk> 0\n▁hi 1\n"
	tok, err := LoadTokenizer(strings.NewReader(content))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}
	if tok.BlankID() != 1 {
		t.Errorf("BlankID() = %d, want 1 (max id, no explicit <blk>)", tok.BlankID())
	}
}

func TestTokenizer_Decode(t *testing.T) {
	tok, err := LoadTokenizer(strings.NewReader(sampleVocab))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}

	if got := tok.Decode([]int32{5}); got != "the" {
		t.Errorf("Decode([5]) = %q, want %q", got, "the")
	}
	if got := tok.Decode([]int32{3, 4}); got != "ain" {
		t.Errorf("Decode([3,4]) = %q, want %q", got, "ain")
	}
}

func TestTokenizer_DecodeSkipsBlank(t *testing.T) {
	content := "▁hello 0\n▁world 1\n<blk> 2"
	tok, err := LoadTokenizer(strings.NewReader(content))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}
	if got := tok.Decode([]int32{0, 2, 1}); got != "hello world" {
		t.Errorf("Decode = %q, want %q", got, "hello world")
	}
}

func TestTokenizer_TokenMayContainSpaces(t *testing.T) {
	content := "foo bar 0\n<blk> 1"
	tok, err := LoadTokenizer(strings.NewReader(content))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}
	if got := tok.Decode([]int32{0}); got != "foo bar" {
		t.Errorf("Decode = %q, want %q", got, "foo bar")
	}
}

func TestTokenizer_DecodeWithTimestamps(t *testing.T) {
	content := "▁hello 0\n▁world 1\n<blk> 2"
	tok, err := LoadTokenizer(strings.NewReader(content))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}

	segments := tok.DecodeWithTimestamps([]int32{0, 1}, []int32{2, 10}, 80)
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	if segments[0].Word != "hello" || segments[1].Word != "world" {
		t.Fatalf("segments = %+v, want [hello, world]", segments)
	}
	if segments[0].Start != 0.16 {
		t.Errorf("segments[0].Start = %v, want 0.16 (2 frames * 80ms)", segments[0].Start)
	}
	if segments[1].Start != 0.8 {
		t.Errorf("segments[1].Start = %v, want 0.8 (10 frames * 80ms)", segments[1].Start)
	}
}

func TestTokenizer_DecodeWithTimestamps_MergesSubwordsIntoOneWord(t *testing.T) {
	content := "▁run 0\nning 1\n<blk> 2"
	tok, err := LoadTokenizer(strings.NewReader(content))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}
	segments := tok.DecodeWithTimestamps([]int32{0, 1}, []int32{0, 1}, 80)
	if len(segments) != 1 || segments[0].Word != "running" {
		t.Fatalf("segments = %+v, want one word %q", segments, "running")
	}
}

func TestTokenizer_DecodeWithTimestamps_EmptyIsNil(t *testing.T) {
	tok, err := LoadTokenizer(strings.NewReader(sampleVocab))
	if err != nil {
		t.Fatalf("LoadTokenizer: %v", err)
	}
	if got := tok.DecodeWithTimestamps(nil, nil, 80); got != nil {
		t.Errorf("DecodeWithTimestamps(nil) = %v, want nil", got)
	}
}
