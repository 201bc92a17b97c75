// Package words provides the secret-word list and the random picker used
// to start each round.
package words

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyList is returned when a word list has no usable entries.
var ErrEmptyList = errors.New("word list is empty")

// Source is the randomness provider for word selection.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn returns a uniformly distributed int in [0, n).
//
// Precondition: n > 0. Panics if n <= 0 or crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("words: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("words: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// defaultWords is the built-in list used when no words file is configured.
var defaultWords = []string{
	"КОТ", "СОБАКА", "ДОМ", "МАШИНА", "СОЛНЦЕ", "ДЕРЕВО",
	"ЯБЛОКО", "КНИГА", "СТОЛ", "СТУЛ", "ОКНО", "ДВЕРЬ",
	"МОРЕ", "ГОРА", "ЦВЕТОК", "ПТИЦА", "РЫБА", "ЛЕВ",
	"СЛОН", "МЕДВЕДЬ", "ЗАЯЦ", "ЛИСА", "ВОЛК", "КОРОВА",
	"ТЕЛЕФОН", "КОМПЬЮТЕР", "ПЛАНШЕТ", "ТЕЛЕВИЗОР", "ХОЛОДИЛЬНИК",
	"МИКРОВОЛНОВКА", "ЧАЙНИК", "ТОСТЕР", "ФЕН", "УТЮГ", "ПЫЛЕСОС",
	"СКОВОРОДА", "КАСТРЮЛЯ", "ТАРЕЛКА", "ВИЛКА", "ЛОЖКА", "НОЖ",
	"КРОВАТЬ", "ШКАФ", "КОМОД", "ЗЕРКАЛО", "КОВЕР", "ПОДУШКА",
	"ОДЕЯЛО", "ПРОСТЫНЯ", "ПОЛОТЕНЦЕ", "МЫЛО", "ШАМПУНЬ", "ЗУБНАЯЩЕТКА",
	"ПАСТА", "РАЗЕТКА", "ВЫКЛЮЧАТЕЛЬ", "ЛАМПОЧКА", "ПРОВОД", "БАТАРЕЙКА",
	"АККУМУЛЯТОР", "ЗАРЯДКА", "НАУШНИКИ", "КОЛОНКИ", "МИКРОФОН", "КАМЕРА",
	"ФОТОАППАРАТ", "ВИДЕОКАМЕРА", "ПРОЕКТОР", "ЭКРАН", "КЛАВИАТУРА", "МЫШКА",
	"КОЛЕСО", "РУЛЬ", "ФАРА", "ДВИГАТЕЛЬ", "ШИНА",
	"ЛОДКА", "САМОЛЕТ", "ВЕРТОЛЕТ", "ПОЕЗД", "ТРАМВАЙ", "ТРОЛЛЕЙБУС",
	"ВЕЛОСИПЕД", "САМОКАТ", "РОЛИКИ", "СКЕЙТБОРД", "ЛЫЖИ", "СНЕГОХОД",
	"ПАРОВОЗ", "ТАНКЕР", "ПАРОМ", "ЯХТА", "КАНОЭ", "БАЙДАРКА",
	"ПАРАШЮТ", "ВОЗДУШНЫЙШАР", "ДИРИЖАБЛЬ", "РАКЕТА", "СПУТНИК", "ТЕЛЕСКОП",
}

// List is an immutable, de-duplicated set of candidate words.
//
// Invariant: Len() > 0 and no two entries are equal ignoring case.
type List struct {
	words []string
}

// Default returns the built-in word list.
func Default() *List {
	l, err := New(defaultWords)
	if err != nil {
		panic(err)
	}
	return l
}

// New builds a List from raw entries. Entries are trimmed, blanks dropped,
// and case-insensitive duplicates collapsed so every word is equally likely.
//
// Postcondition: Returns a non-empty List or ErrEmptyList.
func New(raw []string) (*List, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToUpper(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, ErrEmptyList
	}
	return &List{words: out}, nil
}

// fileFormat is the YAML shape of a words file.
type fileFormat struct {
	Words []string `yaml:"words"`
}

// LoadFile reads a YAML document of the form `words: [a, b, c]`.
//
// Precondition: path must be a readable file.
// Postcondition: Returns a non-empty List or a non-nil error.
func LoadFile(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing words file %s: %w", path, err)
	}
	l, err := New(f.Words)
	if err != nil {
		return nil, fmt.Errorf("words file %s: %w", path, err)
	}
	return l, nil
}

// Len returns the number of distinct words.
func (l *List) Len() int { return len(l.words) }

// Contains reports whether word is in the list, ignoring case and surrounding space.
func (l *List) Contains(word string) bool {
	word = strings.TrimSpace(word)
	for _, w := range l.words {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

// Words returns a copy of the entries.
func (l *List) Words() []string {
	out := make([]string, len(l.words))
	copy(out, l.words)
	return out
}

// Picker draws words uniformly at random from a List.
type Picker struct {
	list *List
	src  Source
}

// NewPicker creates a Picker.
//
// Precondition: list and src must be non-nil.
func NewPicker(list *List, src Source) *Picker {
	return &Picker{list: list, src: src}
}

// Pick returns a uniformly random word.
//
// Postcondition: The result is an entry of the underlying List.
func (p *Picker) Pick() string {
	return p.list.words[p.src.Intn(len(p.list.words))]
}
