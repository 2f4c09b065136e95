package utils

import (
	"math/rand"

	"github.com/Luismorlan/postsync/utils/dotenv"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// IsProdEnv returns true iff the binary runs with POSTSYNC_ENV=prod.
func IsProdEnv() bool {
	return dotenv.CurrentEnv() == dotenv.ProdEnv
}

// ContainsInt64 returns true iff the provided slice hay contains needle.
func ContainsInt64(hay []int64, needle int64) bool {
	for _, v := range hay {
		if v == needle {
			return true
		}
	}
	return false
}

// UniqueInt64 returns ids with duplicates removed, keeping first occurrence
// order.
func UniqueInt64(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	res := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}

// RandomAlphabetString returns a random string of n lower case letters.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
