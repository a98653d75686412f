package loaders

import (
	"github.com/cockroachdb/errors"
)

const spirvMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V module")

// ShaderLoader reads compiled SPIR-V modules from disk.
type ShaderLoader struct {
	binary BinaryLoader
}

func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := sl.binary.Load(path)
	if err != nil {
		return nil, err
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return code, nil
}

// DecodeSPIRV converts a little endian SPIR-V binary into its words.
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "size %d is not a positive multiple of 4", len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != spirvMagic {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "bad magic %#08x", code[0])
	}
	return code, nil
}
