package authz

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Relationship — один элемент выдачи ReadRelationships.
type Relationship struct {
	ResourceID string
	SubjectID  string
	Relation   string
}

// RelationshipStream — ленивая последовательность relation-ов поверх
// NDJSON-ответа шлюза. Конечная и не перезапускаемая: повторное чтение
// требует нового вызова ReadRelationships. Использование как у sql.Rows:
//
//	for stream.Next() {
//	    rel := stream.Relationship()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
type RelationshipStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	current Relationship
	err     error
	closed  bool
}

// NewRelationshipStream оборачивает NDJSON-тело ответа в поток.
// Владение телом переходит потоку: Close закрывает его.
func NewRelationshipStream(body io.ReadCloser) *RelationshipStream {
	scanner := bufio.NewScanner(body)
	// Одна строка — один JSON-объект; запас на крупные caveat-поля.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &RelationshipStream{body: body, scanner: scanner}
}

type readResult struct {
	Result *struct {
		ReadAt       tokenRef `json:"readAt"`
		Relationship struct {
			Resource objectRef `json:"resource"`
			Relation string    `json:"relation"`
			Subject  struct {
				Object objectRef `json:"object"`
			} `json:"subject"`
		} `json:"relationship"`
	} `json:"result"`
	Error *wireError `json:"error"`
}

// Next декодирует следующий relation. Возвращает false по исчерпании
// последовательности или при первой ошибке (см. Err).
func (s *RelationshipStream) Next() bool {
	if s.err != nil || s.closed {
		return false
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var item readResult
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			s.fail(fmt.Errorf("failed to decode relationship stream item: %w", err))
			return false
		}
		if item.Error != nil {
			s.fail(&AuthzError{Code: item.Error.Code.String(), Message: item.Error.Message})
			return false
		}
		if item.Result == nil {
			s.fail(fmt.Errorf("relationship stream item has neither result nor error: %s", line))
			return false
		}

		rel := item.Result.Relationship
		s.current = Relationship{
			ResourceID: rel.Resource.ObjectID,
			SubjectID:  rel.Subject.Object.ObjectID,
			Relation:   rel.Relation,
		}
		return true
	}

	if err := s.scanner.Err(); err != nil {
		s.fail(fmt.Errorf("relationship stream read failed: %w", err))
		return false
	}
	s.Close()
	return false
}

// Relationship возвращает элемент, на котором остановился последний Next.
func (s *RelationshipStream) Relationship() Relationship { return s.current }

func (s *RelationshipStream) Err() error { return s.err }

func (s *RelationshipStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

func (s *RelationshipStream) fail(err error) {
	s.err = err
	s.Close()
}

// Collect вычитывает остаток потока в слайс и закрывает его.
func (s *RelationshipStream) Collect() ([]Relationship, error) {
	defer s.Close()
	var out []Relationship
	for s.Next() {
		out = append(out, s.Relationship())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
