package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// Dirent is one fixed-size entry in a directory's data: a null-padded name
// and the inode number it names. An inode number of 0 marks an empty slot —
// inode 0 itself is always the root directory, so 0 can never be a live
// reference. Unlinkat compacts the directory and never leaves such a slot.
type Dirent struct {
	Name        [nameField]byte
	InodeNumber uint32
}

// NewDirent builds a Dirent for name and inodeNumber. name must be at most
// NameMax bytes.
func NewDirent(name string, inodeNumber uint32) Dirent {
	if len(name) > NameMax {
		panic(fmt.Sprintf("layout: name %q is longer than %d bytes", name, NameMax))
	}
	var d Dirent
	copy(d.Name[:], name)
	d.InodeNumber = inodeNumber
	return d
}

// NameString returns the entry's name with the NUL padding stripped.
func (d Dirent) NameString() string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n < 0 {
		n = len(d.Name)
	}
	return string(d.Name[:n])
}

// MarshalBinary encodes d as the DirentSize bytes stored on disk.
func (d Dirent) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DirentSize)
	if err := binary.Write(bytewriter.New(buf), binary.LittleEndian, &d); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary decodes buf, which must be exactly DirentSize bytes, into d.
func (d *Dirent) UnmarshalBinary(buf []byte) error {
	if len(buf) != DirentSize {
		return fmt.Errorf("layout: dirent must be exactly %d bytes, got %d", DirentSize, len(buf))
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, d)
}
