package pdftest

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// Security encrypts fixture objects for the standard security handler
// with an empty user password. Revisions 2 and 3 use RC4, 4 AES-128 and
// 5 and 6 AES-256.
type Security struct {
	Revision int

	id    []byte
	owner []byte
	user  []byte
	ue    []byte
	key   []byte
}

const permissions int32 = -4

// NewSecurity derives the keys for revision.
func NewSecurity(revision int) *Security {
	s := &Security{Revision: revision, id: []byte("fixture-document")}
	if revision >= 5 {
		s.newAES256()
		return s
	}

	s.owner = bytes.Repeat([]byte{0x5a, 0xa5}, 16)
	n := 16
	if revision == 2 {
		n = 5
	}

	h := md5.New()
	h.Write(passwordPadding)
	h.Write(s.owner)
	perm := permissions
	p := uint32(perm)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(s.id)
	key := h.Sum(nil)
	if revision >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:n])
			key = sum[:]
		}
	}
	s.key = key[:n]

	if revision == 2 {
		s.user = rc4XOR(s.key, passwordPadding)
		return s
	}
	h = md5.New()
	h.Write(passwordPadding)
	h.Write(s.id)
	u := h.Sum(nil)
	for i := 0; i <= 19; i++ {
		k := make([]byte, len(s.key))
		for j := range k {
			k[j] = s.key[j] ^ byte(i)
		}
		u = rc4XOR(k, u)
	}
	s.user = append(u, make([]byte, 16)...)
	return s
}

func (s *Security) newAES256() {
	s.key = bytes.Repeat([]byte{0x42, 0x17, 0x99, 0x03}, 8)
	validation, keySalt := []byte("valsalt1"), []byte("keysalt1")

	s.user = append(append(s.hash(validation), validation...), keySalt...)
	block, _ := aes.NewCipher(s.hash(keySalt))
	s.ue = make([]byte, 32)
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(s.ue, s.key)
	s.owner = bytes.Repeat([]byte{0x33}, 48)
}

// hash is the revision 5 or 6 password hash of the empty password
func (s *Security) hash(salt []byte) []byte {
	sum := sha256.Sum256(salt)
	k := sum[:]
	if s.Revision == 5 {
		return k
	}
	for round := 0; ; round++ {
		k1 := bytes.Repeat(k, 64)
		block, _ := aes.NewCipher(k[:16])
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		total := 0
		for _, b := range e[:16] {
			total += int(b)
		}
		var h hash.Hash
		switch total % 3 {
		case 0:
			h = sha256.New()
		case 1:
			h = sha512.New384()
		default:
			h = sha512.New()
		}
		h.Write(e)
		k = h.Sum(nil)
		if round >= 63 && int(e[len(e)-1]) <= round-31 {
			break
		}
	}
	return k[:32]
}

// ID is the first element of the trailer /ID array.
func (s *Security) ID() []byte {
	return s.id
}

// Dict is the body of the Encrypt dictionary object.
func (s *Security) Dict() string {
	base := fmt.Sprintf("/Filter /Standard /R %d /O <%x> /U <%x> /P %d", s.Revision, s.owner, s.user, permissions)
	switch s.Revision {
	case 2:
		return "<< " + base + " /V 1 >>"
	case 3:
		return "<< " + base + " /V 2 /Length 128 >>"
	case 4:
		return "<< " + base + " /V 4 /Length 128 /CF << /StdCF << /CFM /AESV2 /AuthEvent /DocOpen /Length 16 >> >> /StmF /StdCF /StrF /StdCF >>"
	}
	return fmt.Sprintf("<< %s /V 5 /Length 256 /CF << /StdCF << /CFM /AESV3 /AuthEvent /DocOpen /Length 32 >> >> /StmF /StdCF /StrF /StdCF /OE <%x> /UE <%x> >>",
		base, bytes.Repeat([]byte{0x44}, 32), s.ue)
}

// Trailer returns the trailer entries naming the Encrypt object.
func (s *Security) Trailer(encryptObj int) string {
	return fmt.Sprintf("/Encrypt %d 0 R /ID [<%x> <%x>] ", encryptObj, s.id, s.id)
}

// Encrypt encrypts data stored in object num, generation 0.
func (s *Security) Encrypt(num int, data []byte) []byte {
	switch {
	case s.Revision <= 3:
		return rc4XOR(s.objectKey(num, false), data)
	case s.Revision == 4:
		return aesCBC(s.objectKey(num, true), data)
	}
	return aesCBC(s.key, data)
}

// String returns a hex string literal of text encrypted for object num.
func (s *Security) String(num int, text string) string {
	return fmt.Sprintf("<%x>", s.Encrypt(num, []byte(text)))
}

func (s *Security) objectKey(num int, salt bool) []byte {
	h := md5.New()
	h.Write(s.key)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16), 0, 0})
	if salt {
		h.Write([]byte("sAlT"))
	}
	return h.Sum(nil)[:min(len(s.key)+5, 16)]
}

func rc4XOR(key, data []byte) []byte {
	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// aesCBC encrypts with a fixed IV and PKCS#7 padding
func aesCBC(key, data []byte) []byte {
	pad := aes.BlockSize - len(data)%aes.BlockSize
	plain := append(bytes.Clone(data), bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, aes.BlockSize+len(plain))
	for i := 0; i < aes.BlockSize; i++ {
		out[i] = byte(i * 7)
	}
	block, _ := aes.NewCipher(key)
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(out[aes.BlockSize:], plain)
	return out
}
