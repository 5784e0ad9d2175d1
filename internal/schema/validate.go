package schema

import "strings"

func validatePort(port int) error {
	// 0 means the caller supplies the port later.
	if port < 0 || port > MaxPort {
		return fieldError("", ErrInvalidPort, "%d is outside 0-%d", port, MaxPort)
	}
	return nil
}

// validateFields checks the message invariants and returns the derived
// field indices in resolution order.
func validateFields(fields []FieldSpec) ([]int, error) {
	if len(fields) == 0 {
		return nil, &SchemaError{Err: ErrNoFields}
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fieldError("", ErrInvalidField, "field without a name")
		}
		if seen[f.Name] {
			return nil, &SchemaError{Field: f.Name, Err: ErrDuplicateField}
		}
		seen[f.Name] = true
		if err := validateField(f); err != nil {
			return nil, err
		}
	}

	for _, f := range fields {
		if f.IsDerived() && !seen[f.LengthOf] {
			return nil, fieldError(f.Name, ErrUnknownLengthTarget, "length_of=%q", f.LengthOf)
		}
	}

	return resolutionOrder(fields)
}

func validateField(f FieldSpec) error {
	if f.MinValue != nil && f.MaxValue != nil && *f.MinValue > *f.MaxValue {
		return fieldError(f.Name, ErrInvalidField, "min_value %d exceeds max_value %d", *f.MinValue, *f.MaxValue)
	}
	if f.MinLength != nil && *f.MinLength < 0 {
		return fieldError(f.Name, ErrInvalidField, "negative min_length %d", *f.MinLength)
	}
	if f.MaxLength != nil && *f.MaxLength < 0 {
		return fieldError(f.Name, ErrInvalidField, "negative max_length %d", *f.MaxLength)
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return fieldError(f.Name, ErrInvalidField, "min_length %d exceeds max_length %d", *f.MinLength, *f.MaxLength)
	}
	if f.Length != nil {
		if *f.Length < 0 {
			return fieldError(f.Name, ErrInvalidField, "negative length %d", *f.Length)
		}
		if f.Type == TypeEnum && (*f.Length < 1 || *f.Length > MaxEnumWidth) {
			return fieldError(f.Name, ErrInvalidField, "enum length must be 1-%d, got %d", MaxEnumWidth, *f.Length)
		}
	}
	if _, err := LookupEncoding(f.TextEncoding()); err != nil {
		return &SchemaError{Field: f.Name, Err: err, Detail: f.TextEncoding()}
	}
	return nil
}

// resolutionOrder runs a depth-first search over the length_of edges.
// onPath holds the nodes of the active walk and done the ones fully
// explored; meeting a node that is still on the path is a cycle, which
// includes a field naming itself.
func resolutionOrder(fields []FieldSpec) ([]int, error) {
	index := make(map[string]int, len(fields))
	edges := make(map[string]string)
	for i, f := range fields {
		index[f.Name] = i
		if f.IsDerived() {
			edges[f.Name] = f.LengthOf
		}
	}

	onPath := make(map[string]bool)
	done := make(map[string]bool)
	var path []string
	var order []int

	var visit func(name string) error
	visit = func(name string) error {
		if onPath[name] {
			return fieldError(name, ErrLengthCycle, "%s -> %s", strings.Join(cyclePath(path, name), " -> "), name)
		}
		if done[name] {
			return nil
		}
		onPath[name] = true
		path = append(path, name)
		if target, ok := edges[name]; ok {
			if err := visit(target); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, name)
		done[name] = true
		if i, ok := index[name]; ok && fields[i].IsDerived() {
			order = append(order, i)
		}
		return nil
	}

	for _, f := range fields {
		if !f.IsDerived() {
			continue
		}
		if err := visit(f.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cyclePath trims the walk to the part that loops back to start.
func cyclePath(path []string, start string) []string {
	for i, name := range path {
		if name == start {
			return path[i:]
		}
	}
	return path
}
