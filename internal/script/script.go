// Package script tokenizes and parses the two ASCII auxiliary scripts:
// "*_animsets.txt" (animset name -> ordered animation symbols) and
// "*_actors.txt" (actor name -> skeleton symbol + animset name).
package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Animset is one ANIMSET_DEF record: a name and its ordered list of
// animation symbols.
type Animset struct {
	Name       string
	Animations []string
}

// Actor is one ACTOR_DEF record.
type Actor struct {
	Name           string
	SkeletonSymbol string
	AnimsetName    string
	Unknown        [4]int
}

// tokenize splits a script into its one-token-per-line stream, dropping
// blank lines.
func tokenize(src string) []string {
	lines := strings.Split(src, "\n")
	toks := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		toks = append(toks, l)
	}
	return toks
}

// ParseAnimsets parses one "*_animsets.txt" payload into its ANIMSET_DEF
// records, keyed by name.
func ParseAnimsets(src string) (map[string]Animset, error) {
	toks := tokenize(src)
	out := make(map[string]Animset)
	if len(toks) == 0 {
		return out, nil
	}

	i := 0
	if toks[i] != "ANIMSET_DEF_FILE" {
		return nil, fmt.Errorf("script: animsets file missing ANIMSET_DEF_FILE header")
	}
	i++

	for i < len(toks) && toks[i] == "ANIMSET_DEF" {
		i++
		name, err := expectSlashField(toks, &i)
		if err != nil {
			return nil, fmt.Errorf("script: animset name: %w", err)
		}
		countTok, err := expectSlashField(toks, &i)
		if err != nil {
			return nil, fmt.Errorf("script: animset %q count: %w", name, err)
		}
		n, err := strconv.Atoi(countTok)
		if err != nil {
			return nil, fmt.Errorf("script: animset %q count %q: %w", name, countTok, err)
		}
		// A trailing "/" separates the count from the animation list.
		if i < len(toks) && toks[i] == "/" {
			i++
		}
		if i+n > len(toks) {
			return nil, fmt.Errorf("script: animset %q expects %d animations, ran out of tokens", name, n)
		}
		anims := append([]string(nil), toks[i:i+n]...)
		i += n

		out[name] = Animset{Name: name, Animations: anims}
	}

	return out, nil
}

// ParseActors parses one "*_actors.txt" payload into its ACTOR_DEF
// records, keyed by name.
func ParseActors(src string) (map[string]Actor, error) {
	toks := tokenize(src)
	out := make(map[string]Actor)
	if len(toks) == 0 {
		return out, nil
	}

	i := 0
	if toks[i] != "ACTOR_DEF_FILE" {
		return nil, fmt.Errorf("script: actors file missing ACTOR_DEF_FILE header")
	}
	i++

	for i < len(toks) && toks[i] == "ACTOR_DEF" {
		i++
		name, err := expectSlashField(toks, &i)
		if err != nil {
			return nil, fmt.Errorf("script: actor name: %w", err)
		}
		skel, err := expectSlashField(toks, &i)
		if err != nil {
			return nil, fmt.Errorf("script: actor %q skeleton: %w", name, err)
		}
		animset, err := expectSlashField(toks, &i)
		if err != nil {
			return nil, fmt.Errorf("script: actor %q animset: %w", name, err)
		}
		if i < len(toks) && toks[i] == "/" {
			i++
		}
		var nums [4]int
		for k := 0; k < 4; k++ {
			if i >= len(toks) {
				return nil, fmt.Errorf("script: actor %q missing integer field %d", name, k)
			}
			v, err := strconv.Atoi(toks[i])
			if err != nil {
				return nil, fmt.Errorf("script: actor %q integer field %d: %w", name, k, err)
			}
			nums[k] = v
			i++
		}

		out[name] = Actor{Name: name, SkeletonSymbol: skel, AnimsetName: animset, Unknown: nums}
	}

	return out, nil
}

// expectSlashField reads "/ value" starting at *i, advancing past both
// tokens, and returns value.
func expectSlashField(toks []string, i *int) (string, error) {
	if *i >= len(toks) || toks[*i] != "/" {
		return "", fmt.Errorf("expected '/' field separator")
	}
	*i++
	if *i >= len(toks) {
		return "", fmt.Errorf("expected value after '/'")
	}
	v := toks[*i]
	*i++
	return v, nil
}
