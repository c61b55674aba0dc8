package plan

// Column namespacing. After a join two tables can both contribute a column
// named "id"; to keep them apart every backend column carries an optional
// table qualifier encoded into one flat string. The separator is a sequence
// that can never occur in a legal identifier, so the encoding is unambiguous
// and round-trips exactly.

const ColumnSep = "/@/"

// ColumnFromParts builds the internal identifier from a qualifier and a
// column name. An empty table yields the unqualified identifier.
func ColumnFromParts(table, column string) string {
	if table == "" {
		return column
	}
	return table + ColumnSep + column
}

func splitTableColumn(id, sep string) (string, string) {
	for i := 0; i+len(sep) <= len(id); i++ {
		if id[i:i+len(sep)] == sep {
			return id[:i], id[i+len(sep):]
		}
	}
	return "", id
}

// ColumnTable returns the qualifier of an internal identifier, or "" when
// the identifier is unqualified.
func ColumnTable(id string) string {
	table, _ := splitTableColumn(id, ColumnSep)
	return table
}

// ColumnName returns the bare column name of an internal identifier.
func ColumnName(id string) string {
	_, column := splitTableColumn(id, ColumnSep)
	return column
}

// ColumnSetTable replaces the qualifier of an internal identifier.
func ColumnSetTable(id, table string) string {
	return ColumnFromParts(table, ColumnName(id))
}

// ColumnMatches reports whether a user-facing, possibly dotted reference
// names the same column as an internal identifier. Comparison runs right to
// left so that a bare reference matches any qualifier, while a qualified
// reference must match the qualifier exactly. The reference splits under
// the same quoting rules as ResolveColumn.
func ColumnMatches(ref, internal string) bool {
	parts := SplitQuotedName(ref)
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	intTable, intColumn := splitTableColumn(internal, ColumnSep)

	if len(parts) == 1 {
		return parts[0] == intColumn
	}
	return parts[0] == intTable && parts[1] == intColumn
}

// SplitQuotedName splits a dotted reference into its components. Double
// quotes toggle a verbatim region and backslash escapes the next character;
// only unquoted dots separate.
func SplitQuotedName(name string) []string {
	parts := []string{}
	current := []rune{}

	inQuote := false
	afterEscape := false

	for _, c := range name {
		switch {
		case afterEscape:
			current = append(current, c)
			afterEscape = false

		case inQuote && c != '"':
			current = append(current, c)

		case c == '"':
			inQuote = !inQuote

		case c == '\\':
			afterEscape = true

		case c == '.':
			parts = append(parts, string(current))
			current = current[:0]

		default:
			current = append(current, c)
		}
	}

	parts = append(parts, string(current))
	return parts
}

// ToInternal converts a user reference into internal identifier form,
// keeping at most the trailing table.column pair. Schema qualification
// beyond the table is not tracked.
func ToInternal(ref string) string {
	parts := SplitQuotedName(ref)
	if len(parts) >= 2 {
		return ColumnFromParts(parts[len(parts)-2], parts[len(parts)-1])
	}
	return parts[0]
}

// ResolveColumn resolves a user reference against a known column list.
//
// A qualified reference resolves to its internal form directly, without an
// existence check. A bare reference is matched by column name against the
// known list: no match fails with ErrColumnNotFound unless optional is set,
// in which case "" is returned; multiple matches fail with
// ErrAmbiguousColumn.
func ResolveColumn(ref string, columns []string, optional bool) (string, error) {
	parts := SplitQuotedName(ref)
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}

	if len(parts) == 2 {
		return ColumnFromParts(parts[0], parts[1]), nil
	}

	name := parts[0]
	candidates := []string{}
	for _, c := range columns {
		if ColumnName(c) == name {
			candidates = append(candidates, c)
		}
	}

	switch len(candidates) {
	case 0:
		if optional {
			return "", nil
		}
		return "", ErrColumnNotFound.New(ref, columns)
	case 1:
		return candidates[0], nil
	default:
		return "", ErrAmbiguousColumn.New(ref, columns)
	}
}
