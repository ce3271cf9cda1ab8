package doc

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kevinxiao27/quill/crdt"
)

// Kind discriminates the payload of a wire operation.
type Kind string

const (
	KindSetValue      Kind = "SET_VALUE"
	KindAddElement    Kind = "ADD_ELEMENT"
	KindRemoveElement Kind = "REMOVE_ELEMENT"
	KindInsertAt      Kind = "INSERT_AT"
	KindDeleteAt      Kind = "DELETE_AT"
	KindIncrement     Kind = "INCREMENT"
	KindDecrement     Kind = "DECREMENT"
	KindSetEntry      Kind = "SET_ENTRY"
	KindDeleteEntry   Kind = "DELETE_ENTRY"
	KindInsertText    Kind = "INSERT_TEXT"
	KindDeleteText    Kind = "DELETE_TEXT"
	KindFormatText    Kind = "FORMAT_TEXT"
	KindUnformatText  Kind = "UNFORMAT_TEXT"
)

// Operation is the unit of mutation exchanged between replicas. Target names
// the collection the kind acts on: a register for SET_VALUE, a set for the
// element kinds, a list for the *_AT kinds, a counter, a map, or a rich text
// for the *_TEXT kinds. Operations are immutable once created.
type Operation struct {
	ID      string          `json:"id" validate:"required"`
	Clock   crdt.Stamp      `json:"clock"`
	Kind    Kind            `json:"kind" validate:"required"`
	Target  string          `json:"target" validate:"required"`
	Replica string          `json:"replica_id" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SetValuePayload writes a register.
type SetValuePayload struct {
	Value string `json:"value"`
}

// AddElementPayload adds a set member under a fresh unique tag.
type AddElementPayload struct {
	Value string `json:"value"`
	Tag   string `json:"tag" validate:"required"`
}

// RemoveElementPayload tombstones the add-tags the remover had observed.
// Tags the remover never saw are deliberately absent, which is what lets a
// concurrent add survive.
type RemoveElementPayload struct {
	Value string   `json:"value"`
	Tags  []string `json:"tags"`
}

// InsertAtPayload inserts one list element after its predecessor; an empty
// predecessor means the head of the list.
type InsertAtPayload struct {
	ElementID   string `json:"element_id" validate:"required"`
	Predecessor string `json:"predecessor,omitempty"`
	Value       string `json:"value"`
}

// DeleteAtPayload tombstones one list element.
type DeleteAtPayload struct {
	ElementID string `json:"element_id" validate:"required"`
}

// AmountPayload carries the magnitude of a counter increment or decrement.
type AmountPayload struct {
	Amount int64 `json:"amount" validate:"gte=0"`
}

// SetEntryPayload writes a map entry.
type SetEntryPayload struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// DeleteEntryPayload writes an absent map entry.
type DeleteEntryPayload struct {
	Key string `json:"key" validate:"required"`
}

// InsertTextPayload inserts a run of characters after a predecessor element,
// one id per rune so concurrent edits interleave at character granularity.
type InsertTextPayload struct {
	Predecessor string   `json:"predecessor,omitempty"`
	ElementIDs  []string `json:"element_ids" validate:"required,min=1"`
	Text        string   `json:"text" validate:"required"`
}

// DeleteTextPayload tombstones character elements by id.
type DeleteTextPayload struct {
	ElementIDs []string `json:"element_ids" validate:"required,min=1"`
}

// FormatTextPayload adds a format range anchored on element ids.
type FormatTextPayload struct {
	StartID string `json:"start_id" validate:"required"`
	EndID   string `json:"end_id" validate:"required"`
	Format  string `json:"format" validate:"required"`
	Tag     string `json:"tag" validate:"required"`
}

// UnformatTextPayload removes a format range member by tombstoning its
// observed tags.
type UnformatTextPayload struct {
	StartID string   `json:"start_id" validate:"required"`
	EndID   string   `json:"end_id" validate:"required"`
	Format  string   `json:"format" validate:"required"`
	Tags    []string `json:"tags"`
}

var validate = validator.New()

// Encode serializes the operation for the transport.
func (op Operation) Encode() ([]byte, error) {
	return json.Marshal(op)
}

// DecodeOperation parses and validates a wire operation.
func DecodeOperation(data []byte) (Operation, error) {
	var op Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return Operation{}, fmt.Errorf("%w: %v", ErrMalformedOperation, err)
	}
	if err := op.Validate(); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// Validate checks the envelope and the kind-specific payload.
func (op Operation) Validate() error {
	if err := validate.Struct(op); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOperation, err)
	}
	_, err := op.decodePayload()
	return err
}

// decodePayload returns the typed, validated payload for op.Kind.
func (op Operation) decodePayload() (any, error) {
	var payload any
	switch op.Kind {
	case KindSetValue:
		payload = &SetValuePayload{}
	case KindAddElement:
		payload = &AddElementPayload{}
	case KindRemoveElement:
		payload = &RemoveElementPayload{}
	case KindInsertAt:
		payload = &InsertAtPayload{}
	case KindDeleteAt:
		payload = &DeleteAtPayload{}
	case KindIncrement, KindDecrement:
		payload = &AmountPayload{}
	case KindSetEntry:
		payload = &SetEntryPayload{}
	case KindDeleteEntry:
		payload = &DeleteEntryPayload{}
	case KindInsertText:
		payload = &InsertTextPayload{}
	case KindDeleteText:
		payload = &DeleteTextPayload{}
	case KindFormatText:
		payload = &FormatTextPayload{}
	case KindUnformatText:
		payload = &UnformatTextPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedOperation, op.Kind)
	}
	if err := json.Unmarshal(op.Payload, payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedOperation, op.Kind, err)
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedOperation, op.Kind, err)
	}
	return payload, nil
}

func marshalPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// payload structs contain only marshalable fields
		panic(err)
	}
	return data
}
