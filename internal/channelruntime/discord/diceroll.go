package discord

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// Dice rolls ("2d6 attack") are answered for any non-bot message, before
// the mention gate and without a generation request.
var dicePattern = regexp.MustCompile(`(\d+)[dD](\d+)`)

type diceRoll struct {
	Lo   int
	Hi   int
	Note string
}

// parseDiceRoll extracts the first NdM token and the trailing note. The
// roll is uniform over [N, M]; N must be positive and M at least N.
func parseDiceRoll(text string) (diceRoll, bool) {
	m := dicePattern.FindStringSubmatchIndex(text)
	if m == nil {
		return diceRoll{}, false
	}
	lo, err1 := strconv.Atoi(text[m[2]:m[3]])
	hi, err2 := strconv.Atoi(text[m[4]:m[5]])
	if err1 != nil || err2 != nil || lo <= 0 || hi < lo {
		return diceRoll{}, false
	}
	return diceRoll{Lo: lo, Hi: hi, Note: strings.TrimSpace(text[m[1]:])}, true
}

func rollDice(roll diceRoll) int {
	return rand.IntN(roll.Hi-roll.Lo+1) + roll.Lo
}

func formatDiceReply(authorID string, roll diceRoll, result int) string {
	head := fmt.Sprintf("<@%s>\n%dd%d", authorID, roll.Lo, roll.Hi)
	if roll.Note != "" {
		head += ": " + roll.Note
	}
	return fmt.Sprintf("%s\n%d[%d] = %d", head, result, result, result)
}
