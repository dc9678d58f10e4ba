package schema

// Helpers for Set functions. v is a value normalized by Load.

func StringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func IntPtr(v any) *int {
	if v == nil {
		return nil
	}
	n := int(v.(int64))
	return &n
}

func Int(v any) int {
	return int(v.(int64))
}
