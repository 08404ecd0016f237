package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
)

// CryptMethod is the cipher a crypt filter applies
type CryptMethod int

const (
	CryptNone CryptMethod = iota
	CryptRC4
	CryptAESV2 // AES-128
	CryptAESV3 // AES-256, PDF 2.0
)

func (m CryptMethod) String() string {
	switch m {
	case CryptRC4:
		return "RC4"
	case CryptAESV2:
		return "AESV2"
	case CryptAESV3:
		return "AESV3"
	}
	return "None"
}

// SecurityHandler decrypts objects of a document protected by the standard
// security handler. Only the empty password is tried, which opens every
// document whose user password is unset.
type SecurityHandler struct {
	Version     int // V value (1-5)
	Revision    int // R value (2-6)
	KeyLength   int // in bytes
	Permissions int32
	EncryptMeta bool

	// StreamMethod and StringMethod come from StmF and StrF
	StreamMethod CryptMethod
	StringMethod CryptMethod

	ownerKey       []byte // O
	userKey        []byte // U
	ownerEncrypted []byte // OE
	userEncrypted  []byte // UE
	id             []byte
	key            []byte
}

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var errWrongPassword = errors.New("a password is required")

// NewSecurityHandler reads an /Encrypt dictionary. id is the first element
// of the trailer /ID array.
func NewSecurityHandler(dict Dictionary, id []byte) (*SecurityHandler, error) {
	if filter, _ := dict.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("unsupported security handler %q", filter)
	}

	sh := &SecurityHandler{EncryptMeta: true, id: id, KeyLength: 5}
	if v, ok := dict.GetInt("V"); ok {
		sh.Version = int(v)
	}
	if r, ok := dict.GetInt("R"); ok {
		sh.Revision = int(r)
	}
	if p, ok := dict.GetInt("P"); ok {
		sh.Permissions = int32(p)
	}
	if em, ok := dict.GetBool("EncryptMetadata"); ok {
		sh.EncryptMeta = em
	}
	sh.ownerKey = stringBytes(dict.Get("O"))
	sh.userKey = stringBytes(dict.Get("U"))
	sh.ownerEncrypted = stringBytes(dict.Get("OE"))
	sh.userEncrypted = stringBytes(dict.Get("UE"))

	switch sh.Version {
	case 1:
		sh.StreamMethod, sh.StringMethod = CryptRC4, CryptRC4
	case 2, 3:
		if length, ok := dict.GetInt("Length"); ok {
			sh.KeyLength = int(length) / 8
		}
		sh.StreamMethod, sh.StringMethod = CryptRC4, CryptRC4
	case 4:
		sh.KeyLength = 16
		sh.StreamMethod = cryptFilter(dict, "StmF")
		sh.StringMethod = cryptFilter(dict, "StrF")
	case 5:
		sh.KeyLength = 32
		sh.StreamMethod = cryptFilter(dict, "StmF")
		sh.StringMethod = cryptFilter(dict, "StrF")
	default:
		return nil, fmt.Errorf("unsupported encryption version %d", sh.Version)
	}
	if sh.KeyLength < 5 || sh.KeyLength > 16 && sh.Version < 5 {
		return nil, fmt.Errorf("invalid key length %d", sh.KeyLength*8)
	}
	return sh, nil
}

// cryptFilter resolves the method of the crypt filter named by key
func cryptFilter(dict Dictionary, key string) CryptMethod {
	name, ok := dict.GetName(key)
	if !ok || name == "Identity" {
		return CryptNone
	}
	filters, _ := dict.GetDict("CF")
	cf, _ := filters.GetDict(string(name))
	switch cfm, _ := cf.GetName("CFM"); cfm {
	case "V2":
		return CryptRC4
	case "AESV2":
		return CryptAESV2
	case "AESV3":
		return CryptAESV3
	}
	return CryptNone
}

func stringBytes(obj Object) []byte {
	if s, ok := obj.(String); ok {
		return s.Value
	}
	return nil
}

// Authenticate derives the file key from password, trying it first as the
// user password and then as the owner password.
func (sh *SecurityHandler) Authenticate(password string) error {
	if sh.Revision >= 5 {
		return sh.authenticateAES256([]byte(password))
	}
	if sh.authenticateUser(padPassword([]byte(password))) {
		return nil
	}
	if sh.authenticateOwner(password) {
		return nil
	}
	return errWrongPassword
}

func (sh *SecurityHandler) authenticateUser(padded []byte) bool {
	key := sh.computeEncryptionKey(padded)
	computed := sh.computeUserKey(key)

	n := 32
	if sh.Revision >= 3 {
		n = 16
	}
	if len(sh.userKey) < n || !bytes.Equal(computed[:n], sh.userKey[:n]) {
		return false
	}
	sh.key = key
	return true
}

// authenticateOwner recovers the user password from O
func (sh *SecurityHandler) authenticateOwner(password string) bool {
	hash := md5.Sum(padPassword([]byte(password)))
	if sh.Revision >= 3 {
		for i := 0; i < 50; i++ {
			hash = md5.Sum(hash[:])
		}
	}
	key := hash[:sh.KeyLength]

	userPwd := bytes.Clone(sh.ownerKey)
	if sh.Revision >= 3 {
		for i := 19; i >= 0; i-- {
			xorRC4(xorKey(key, byte(i)), userPwd)
		}
	} else {
		xorRC4(key, userPwd)
	}
	return sh.authenticateUser(padPassword(userPwd))
}

// computeEncryptionKey computes the file key for revisions 2 to 4
func (sh *SecurityHandler) computeEncryptionKey(padded []byte) []byte {
	h := md5.New()
	h.Write(padded)
	h.Write(sh.ownerKey)
	p := uint32(sh.Permissions)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(sh.id)
	if sh.Revision >= 4 && !sh.EncryptMeta {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	hash := h.Sum(nil)

	if sh.Revision >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(hash[:sh.KeyLength])
			hash = sum[:]
		}
	}
	return hash[:sh.KeyLength]
}

// computeUserKey computes the expected U value for key
func (sh *SecurityHandler) computeUserKey(key []byte) []byte {
	if sh.Revision < 3 {
		result := bytes.Clone(passwordPadding)
		xorRC4(key, result)
		return result
	}

	h := md5.New()
	h.Write(passwordPadding)
	h.Write(sh.id)
	result := h.Sum(nil)
	for i := 0; i <= 19; i++ {
		xorRC4(xorKey(key, byte(i)), result)
	}
	return append(result, make([]byte, 16)...)
}

// authenticateAES256 validates a revision 5 or 6 password and unwraps the
// file key from UE, or OE for the owner.
func (sh *SecurityHandler) authenticateAES256(password []byte) error {
	if len(password) > 127 {
		password = password[:127]
	}
	if len(sh.userKey) < 48 {
		return fmt.Errorf("U entry has %d bytes", len(sh.userKey))
	}

	u := sh.userKey[:48]
	var wrapped, kek []byte
	switch {
	case bytes.Equal(sh.hashAES256(password, u[32:40], nil), u[:32]):
		wrapped, kek = sh.userEncrypted, sh.hashAES256(password, u[40:48], nil)
	case len(sh.ownerKey) >= 48 && bytes.Equal(sh.hashAES256(password, sh.ownerKey[32:40], u), sh.ownerKey[:32]):
		wrapped, kek = sh.ownerEncrypted, sh.hashAES256(password, sh.ownerKey[40:48], u)
	default:
		return errWrongPassword
	}
	if len(wrapped) != 32 {
		return fmt.Errorf("wrapped file key has %d bytes", len(wrapped))
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return err
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(key, wrapped)
	sh.key = key
	return nil
}

// hashAES256 is SHA-256 for revision 5 and the iterated hash of revision 6
func (sh *SecurityHandler) hashAES256(password, salt, udata []byte) []byte {
	h := sha256.New()
	h.Write(password)
	h.Write(salt)
	h.Write(udata)
	k := h.Sum(nil)
	if sh.Revision < 6 {
		return k
	}

	for round := 0; ; round++ {
		seq := make([]byte, 0, len(password)+len(k)+len(udata))
		seq = append(seq, password...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := bytes.Repeat(seq, 64)

		block, _ := aes.NewCipher(k[:16])
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		var next hash.Hash
		switch sum % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(e)
		k = next.Sum(nil)

		if round >= 63 && int(e[len(e)-1]) <= round-31 {
			break
		}
	}
	return k[:32]
}

// objectKey derives the key for one object
func (sh *SecurityHandler) objectKey(method CryptMethod, objNum, genNum int) []byte {
	if method == CryptAESV3 {
		return sh.key
	}
	h := md5.New()
	h.Write(sh.key)
	h.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16)})
	h.Write([]byte{byte(genNum), byte(genNum >> 8)})
	if method == CryptAESV2 {
		h.Write([]byte("sAlT"))
	}
	return h.Sum(nil)[:min(len(sh.key)+5, 16)]
}

func (sh *SecurityHandler) decrypt(method CryptMethod, data []byte, objNum, genNum int) ([]byte, error) {
	switch method {
	case CryptNone:
		return data, nil
	case CryptRC4:
		out := bytes.Clone(data)
		xorRC4(sh.objectKey(method, objNum, genNum), out)
		return out, nil
	}
	return decryptAES(sh.objectKey(method, objNum, genNum), data)
}

// DecryptObject returns obj with its strings and stream data decrypted.
// Cross-reference streams are stored in the clear; so is metadata when
// EncryptMetadata is false.
func (sh *SecurityHandler) DecryptObject(obj Object, objNum, genNum int) (Object, error) {
	switch v := obj.(type) {
	case String:
		value, err := sh.decrypt(sh.StringMethod, v.Value, objNum, genNum)
		if err != nil {
			return nil, err
		}
		return String{Value: value, IsHex: v.IsHex}, nil
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			dec, err := sh.DecryptObject(item, objNum, genNum)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case Dictionary:
		out := make(Dictionary, len(v))
		for k, item := range v {
			dec, err := sh.DecryptObject(item, objNum, genNum)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	case Stream:
		typ, _ := v.Dictionary.GetName("Type")
		if typ == "XRef" {
			return v, nil
		}
		dict, err := sh.DecryptObject(v.Dictionary, objNum, genNum)
		if err != nil {
			return nil, err
		}
		data := v.Data
		if typ != "Metadata" || sh.EncryptMeta {
			if data, err = sh.decrypt(sh.StreamMethod, v.Data, objNum, genNum); err != nil {
				return nil, fmt.Errorf("decrypt stream: %w", err)
			}
		}
		return Stream{Dictionary: dict.(Dictionary), Data: data}, nil
	}
	return obj, nil
}

// decryptAES decrypts AES-CBC data whose first block is the IV and strips
// the PKCS#7 padding
func decryptAES(key, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("AES data of %d bytes is not block aligned", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(data)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, data[:aes.BlockSize]).CryptBlocks(plaintext, data[aes.BlockSize:])
	if pad := int(plaintext[len(plaintext)-1]); pad > 0 && pad <= aes.BlockSize {
		plaintext = plaintext[:len(plaintext)-pad]
	}
	return plaintext, nil
}

func xorRC4(key, data []byte) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return
	}
	c.XORKeyStream(data, data)
}

func xorKey(key []byte, b byte) []byte {
	out := make([]byte, len(key))
	for i := range key {
		out[i] = key[i] ^ b
	}
	return out
}

// padPassword pads a password to 32 bytes
func padPassword(password []byte) []byte {
	if len(password) > 32 {
		password = password[:32]
	}
	result := make([]byte, 32)
	copy(result, password)
	copy(result[len(password):], passwordPadding)
	return result
}

// IsEncrypted reports whether the trailer names a security handler
func (d *Document) IsEncrypted() bool {
	return d.Trailer.Get("Encrypt") != nil
}

// Security returns the handler decrypting the document, nil when the
// document is not encrypted
func (d *Document) Security() *SecurityHandler {
	return d.security
}
