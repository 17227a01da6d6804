package reqdata

import "github.com/mitchellh/mapstructure"

// decodeMap decodes a flat string-keyed map into dst using mapstructure,
// with weakly-typed input enabled so numeric and boolean struct fields
// accept the string form every wire parameter arrives in.
func decodeMap(flat map[string]string, dst any) error {
	input := make(map[string]any, len(flat))
	for k, v := range flat {
		input[k] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           dst,
		TagName:          "param",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
