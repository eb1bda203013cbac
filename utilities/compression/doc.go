// Package compression implements the RLE8+gzip archive format behind
// blockfsctl's export and import subcommands.
//
// A filesystem image is mostly fixed-size blocks of a single device, and the
// emptier an image is, the more of those blocks are entirely null bytes. In
// experiments, the best compression on this kind of image was achieved by
// run-length encoding the raw image first, then gzipping the result: an image
// that is 256,256 bytes but almost entirely unused data compresses to 3,009
// bytes with run-length encoding alone (98.8%), and down to 67 bytes once
// gzip runs over that (99.97%).
//
// There are a variety of run-length encodings; this document refers strictly to
// the algorithm used by the Microsoft BMP file format, also known as RLE8. A
// brief explanation: if a byte B occurs N times where N >= 2, B is written twice,
// followed by a third (unsigned) byte indicating how many additional times B
// occurred. For example:
//
// 		WXXXXXXXXXXXXXXXYZZ
//		W XX 13 Y ZZ 0
//
// This scheme lets us represent runs of up to 257 bytes with three bytes. For
// runs longer than 257 bytes, they are treated as separate runs. For example,
// a run of 300 "X" is represented as `XX 255 XX 41`. Unfortunately, using a byte
// as its own escape sequence means that occurrences of the same byte exactly
// twice are stored as three bytes: the two bytes followed by a null byte
// indicating no further repetition.

package compression
