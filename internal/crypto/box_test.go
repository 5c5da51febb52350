package crypto

import "testing"

func TestBoxRoundTrip(t *testing.T) {
	box, err := New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("не ожидали ошибку создания Box: %v", err)
	}

	enc, err := box.Encrypt("eyJhbGciOiJFUzI1NiJ9.token")
	if err != nil {
		t.Fatalf("шифрование: %v", err)
	}
	if enc == "eyJhbGciOiJFUzI1NiJ9.token" {
		t.Fatal("шифртекст совпал с исходным токеном")
	}

	dec, err := box.Decrypt(enc)
	if err != nil {
		t.Fatalf("расшифровка: %v", err)
	}
	if dec != "eyJhbGciOiJFUzI1NiJ9.token" {
		t.Fatalf("получили %q", dec)
	}
}

func TestBoxShortKeyRejected(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("ожидали ошибку для короткого ключа")
	}
}

func TestBoxDecryptGarbage(t *testing.T) {
	box, _ := New("0123456789abcdef0123456789abcdef")

	t.Run("not_base64", func(t *testing.T) {
		if _, err := box.Decrypt("%%%"); err == nil {
			t.Fatal("ожидали ошибку")
		}
	})
	t.Run("tampered", func(t *testing.T) {
		enc, _ := box.Encrypt("+79001234567")
		bad := "A" + enc[1:]
		if _, err := box.Decrypt(bad); err == nil {
			t.Fatal("ожидали ошибку для повреждённого шифртекста")
		}
	})
	t.Run("wrong_key", func(t *testing.T) {
		other, _ := New("ffffffffffffffffffffffffffffffff")
		enc, _ := box.Encrypt("+79001234567")
		if _, err := other.Decrypt(enc); err == nil {
			t.Fatal("ожидали ошибку для чужого ключа")
		}
	})
}
