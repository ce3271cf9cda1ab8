package doc

// Convenience constructors around ApplyLocal, one per operation kind. Each
// returns the stamped operation to hand to the transport.

// SetValue writes a register.
func (d *Document) SetValue(target, value string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindSetValue, Target: target, Value: value})
}

// AddElement adds a set member.
func (d *Document) AddElement(target, value string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindAddElement, Target: target, Value: value})
}

// RemoveElement removes a set member, tombstoning only the tags observed
// here.
func (d *Document) RemoveElement(target, value string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindRemoveElement, Target: target, Value: value})
}

// InsertAt inserts a list element at a visible index.
func (d *Document) InsertAt(target string, index int, value string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindInsertAt, Target: target, Index: index, Value: value})
}

// DeleteAt tombstones the list element at a visible index.
func (d *Document) DeleteAt(target string, index int) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindDeleteAt, Target: target, Index: index})
}

// Increment grows a counter.
func (d *Document) Increment(target string, amount int64) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindIncrement, Target: target, Amount: amount})
}

// Decrement shrinks a counter.
func (d *Document) Decrement(target string, amount int64) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindDecrement, Target: target, Amount: amount})
}

// SetEntry writes a map entry.
func (d *Document) SetEntry(target, key, value string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindSetEntry, Target: target, Key: key, Value: value})
}

// DeleteEntry deletes a map entry.
func (d *Document) DeleteEntry(target, key string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindDeleteEntry, Target: target, Key: key})
}

// InsertText inserts text at a visible index of a rich-text body.
func (d *Document) InsertText(target string, index int, text string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindInsertText, Target: target, Index: index, Text: text})
}

// DeleteText tombstones a visible index range of a rich-text body.
func (d *Document) DeleteText(target string, index, length int) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindDeleteText, Target: target, Index: index, Length: length})
}

// FormatText applies a format kind over a visible index range.
func (d *Document) FormatText(target string, index, length int, format string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindFormatText, Target: target, Index: index, Length: length, Format: format})
}

// UnformatText removes the exact format range covering a visible index
// range, if one was applied.
func (d *Document) UnformatText(target string, index, length int, format string) (Operation, error) {
	return d.ApplyLocal(Mutation{Kind: KindUnformatText, Target: target, Index: index, Length: length, Format: format})
}
