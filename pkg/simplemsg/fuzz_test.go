// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFinite returns a random finite float32 (NaN would break equality)
func randomFinite(rng *rand.Rand) float32 {
	return float32((rng.Float64() - 0.5) * 20)
}

func randomMessage(rng *rand.Rand) *Message {
	groups := rng.Intn(MaxGroups + 1)

	if rng.Intn(2) == 0 {
		s := JointState{
			MessageID:   rng.Int31() - rng.Int31(),
			Mode:        Mode(rng.Intn(3)),
			ValidGroups: int32(groups),
		}
		for g := 0; g < groups; g++ {
			s.Groups[g].GroupNo = int32(rng.Intn(MaxGroups))
			for j := 0; j < MaxJointsPerGroup; j++ {
				s.Groups[g].Pos[j] = randomFinite(rng)
				s.Groups[g].Vel[j] = randomFinite(rng)
			}
		}
		msg := NewJointStateMessage(s)
		msg.Header.CommType = CommType(rng.Intn(4))
		msg.Header.ReplyType = ReplyType(rng.Intn(3))
		return msg
	}

	c := JointCommand{MessageID: rng.Int31(), ValidGroups: int32(groups)}
	for g := 0; g < groups; g++ {
		c.Groups[g].GroupNo = int32(rng.Intn(MaxGroups))
		for j := 0; j < MaxJointsPerGroup; j++ {
			c.Groups[g].Command[j] = randomFinite(rng)
		}
	}
	return NewJointCommandMessage(c)
}

// ============================================================
// Codec Fuzz Tests
// ============================================================

func TestFuzz_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		msg := randomMessage(rng)
		data, err := Encode(msg)
		if err != nil {
			t.Fatalf("round %d: Encode failed: %v", i, err)
		}
		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("round %d: Decode failed: %v", i, err)
		}
		if *decoded != *msg {
			t.Fatalf("round %d: round trip mismatch", i)
		}
	}
}

func TestFuzz_DecodeRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(MessageSize*2))
		rng.Read(data)

		// Half of the rounds get a valid prefix and type so the body paths run
		if len(data) >= MessageSize && rng.Intn(2) == 0 {
			putInt32(data, offsetLength, PayloadLength)
			putInt32(data, offsetMsgType, int32(MsgJointStateEx)+int32(rng.Intn(2)))
		}

		msg, err := Decode(data)
		if err != nil {
			if _, ok := err.(*DecodeError); !ok {
				t.Fatalf("round %d: error %T is not *DecodeError", i, err)
			}
			continue
		}
		if msg.Body == nil || msg.Body.MsgType() != msg.Header.MsgType {
			t.Fatalf("round %d: decoded body does not match header", i)
		}
	}
}
