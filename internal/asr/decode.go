package asr

import "context"

// maxTokensPerFrame caps consecutive token emissions within one encoder
// frame, guarding against a decode loop that never advances t.
const maxTokensPerFrame = 5

// decodeGreedy runs the token-duration transducer's greedy decode loop
// over encoder output frames, exactly as
// original_source/src/memoire-stt/src/engine.rs's decode_tdt_static does:
// alternate decoder/joiner calls, argmax the token head over [0,
// vocabSize) and the duration head over the remainder, emit non-blank
// tokens and feed them back, and advance t by the predicted duration (at
// least 1 frame per iteration).
func decodeGreedy(ctx context.Context, session Session, encoded [][]float32, vocabSize int, blankID int32) (tokens []int32, timestamps []int32, err error) {
	var state []float32
	prevToken := blankID
	tokensThisFrame := 0
	t := 0

	for t < len(encoded) {
		prednet, newState, derr := session.Decode(ctx, prevToken, state)
		if derr != nil {
			return nil, nil, derr
		}
		state = newState

		logits, jerr := session.Join(ctx, encoded[t], prednet)
		if jerr != nil {
			return nil, nil, jerr
		}

		bestToken, bestTokenScore := int32(0), float32(0)
		hasToken := false
		for v := 0; v < vocabSize && v < len(logits); v++ {
			score := logits[v]
			if !hasToken || score > bestTokenScore {
				bestTokenScore = score
				bestToken = int32(v)
				hasToken = true
			}
		}

		skip := 1
		numDurations := len(logits) - vocabSize
		if numDurations > 0 {
			bestDurScore := float32(0)
			hasDur := false
			for d := 0; d < numDurations; d++ {
				score := logits[vocabSize+d]
				if !hasDur || score > bestDurScore {
					bestDurScore = score
					skip = d
					hasDur = true
				}
			}
		}

		if bestToken != blankID {
			tokens = append(tokens, bestToken)
			timestamps = append(timestamps, int32(t))
			prevToken = bestToken
			tokensThisFrame++
		}

		if skip > 0 {
			tokensThisFrame = 0
		}
		if tokensThisFrame >= maxTokensPerFrame {
			tokensThisFrame = 0
			skip = 1
		}
		if bestToken == blankID && skip == 0 {
			tokensThisFrame = 0
			skip = 1
		}

		if skip < 1 {
			skip = 1
		}
		t += skip
	}

	return tokens, timestamps, nil
}
