package handler

import (
	"math/rand"
	"strconv"
)

var (
	adjectives = []string{
		"Brave", "Clever", "Swift", "Bright", "Calm",
		"Keen", "Bold", "Wise", "Quick", "Fair",
		"Kind", "True", "Fine", "Grand", "Happy",
		"Merry", "Noble", "Proud", "Safe", "Warm",
	}
	animals = []string{
		"Badger", "Bear", "Beaver", "Coyote", "Eagle",
		"Fox", "Hawk", "Lion", "Owl", "Wolf",
		"Boar", "Deer", "Elk", "Swan", "Seal",
		"Whale", "Otter", "Lynx", "Viper", "Tiger",
	}
)

// GenerateGuestName gives anonymous players a readable username.
func GenerateGuestName() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	animal := animals[rand.Intn(len(animals))]
	return adj + animal + strconv.Itoa(rand.Intn(1000))
}

// Excludes ambiguous characters so codes survive being read aloud.
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateGameCode() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = codeChars[rand.Intn(len(codeChars))]
	}
	return string(code)
}

func (h *Gateway) uniqueGameCode() string {
	for {
		code := generateGameCode()
		if h.registry.Get(code) == nil {
			return code
		}
	}
}
