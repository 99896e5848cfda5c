package security

import (
	"regexp"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestSecurity(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Security Module Suite")
}

var _ = ginkgo.Describe("Hasher", func() {
	var hasher *Hasher

	ginkgo.BeforeEach(func() {
		hasher = NewHasher(10, DefaultLegacySalt)
	})

	ginkgo.Describe("Hash and Verify", func() {
		ginkgo.It("should verify a password against its own digest", func() {
			digest, err := hasher.Hash("Str0ng!Pass")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(hasher.Verify("Str0ng!Pass", digest)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a different password", func() {
			digest, err := hasher.Hash("Str0ng!Pass")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(hasher.Verify("Wr0ng!Pass", digest)).To(gomega.BeFalse())
		})

		ginkgo.It("should produce distinct digests for the same password", func() {
			// bcrypt salts per call, unlike the legacy scheme
			first, _ := hasher.Hash("Str0ng!Pass")
			second, _ := hasher.Hash("Str0ng!Pass")

			gomega.Expect(first).ToNot(gomega.Equal(second))
		})

		ginkgo.It("should reject an empty digest", func() {
			gomega.Expect(hasher.Verify("anything", "")).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("legacy digests", func() {
		ginkgo.It("should verify a fixed-salt SHA-256 digest", func() {
			digest := hasher.LegacyHash("Secret1!")

			gomega.Expect(hasher.Verify("Secret1!", digest)).To(gomega.BeTrue())
			gomega.Expect(hasher.Verify("Secret2!", digest)).To(gomega.BeFalse())
		})

		ginkgo.It("should be deterministic", func() {
			gomega.Expect(hasher.LegacyHash("Secret1!")).To(gomega.Equal(hasher.LegacyHash("Secret1!")))
		})

		ginkgo.It("should be a 64 character hex string", func() {
			gomega.Expect(hasher.LegacyHash("Secret1!")).To(gomega.MatchRegexp(`^[0-9a-f]{64}$`))
		})
	})
})

var _ = ginkgo.Describe("GenerateSessionToken", func() {
	ginkgo.It("should return a 64 character hex string", func() {
		token, err := GenerateSessionToken()

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(token).To(gomega.MatchRegexp(`^[0-9a-f]{64}$`))
	})

	ginkgo.It("should never return the same token twice", func() {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			token, err := GenerateSessionToken()
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, dup := seen[token]
			gomega.Expect(dup).To(gomega.BeFalse())
			seen[token] = struct{}{}
		}
	})
})

var _ = ginkgo.Describe("Encrypt and Decrypt", func() {
	const key = "workshop-encryption-key"

	ginkgo.It("should round-trip data", func() {
		blob, err := Encrypt("sensitive payload", key)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		plain, err := Decrypt(blob, key)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(plain).To(gomega.Equal("sensitive payload"))
	})

	ginkgo.It("should produce distinct blobs per call", func() {
		// random nonce per call
		first, _ := Encrypt("payload", key)
		second, _ := Encrypt("payload", key)

		gomega.Expect(first).ToNot(gomega.Equal(second))
	})

	ginkgo.It("should fail with the wrong key", func() {
		blob, _ := Encrypt("payload", key)

		_, err := Decrypt(blob, "another-key")
		gomega.Expect(err).To(gomega.MatchError(ErrDecryptionFailed))
	})

	ginkgo.It("should fail on malformed input", func() {
		_, err := Decrypt("not-base64!!!", key)
		gomega.Expect(err).To(gomega.MatchError(ErrDecryptionFailed))

		_, err = Decrypt("c2hvcnQ=", key) // too short for a nonce
		gomega.Expect(err).To(gomega.MatchError(ErrDecryptionFailed))
	})

	ginkgo.It("should fail on tampered ciphertext", func() {
		blob, _ := Encrypt("payload", key)
		tampered := blob[:len(blob)-5] + "AAAA="

		_, err := Decrypt(tampered, key)
		gomega.Expect(err).To(gomega.MatchError(ErrDecryptionFailed))
	})
})

var _ = ginkgo.Describe("SanitizeInput", func() {
	ginkgo.It("should strip angle brackets", func() {
		gomega.Expect(SanitizeInput("<script>admin</script>")).To(gomega.Equal("scriptadmin/script"))
	})

	ginkgo.It("should strip javascript protocol prefixes case-insensitively", func() {
		gomega.Expect(SanitizeInput("JaVaScRiPt:alert(1)")).To(gomega.Equal("alert(1)"))
	})

	ginkgo.It("should strip inline event handlers", func() {
		gomega.Expect(SanitizeInput("admin onclick=evil")).To(gomega.Equal("admin evil"))
	})

	ginkgo.It("should trim surrounding whitespace", func() {
		gomega.Expect(SanitizeInput("  admin  ")).To(gomega.Equal("admin"))
	})

	ginkgo.It("should leave clean identifiers untouched", func() {
		gomega.Expect(SanitizeInput("admin@workshop.example")).To(gomega.Equal("admin@workshop.example"))
	})
})

var _ = ginkgo.Describe("ValidatePasswordStrength", func() {
	ginkgo.It("should score a lowercase-only short password at 20 with four errors", func() {
		report := ValidatePasswordStrength("abc")

		gomega.Expect(report.Valid).To(gomega.BeFalse())
		gomega.Expect(report.Score).To(gomega.Equal(20))
		gomega.Expect(report.Errors).To(gomega.HaveLen(4))
	})

	ginkgo.It("should score a fully compliant password at 100", func() {
		report := ValidatePasswordStrength("Abcd123!")

		gomega.Expect(report.Valid).To(gomega.BeTrue())
		gomega.Expect(report.Score).To(gomega.Equal(100))
		gomega.Expect(report.Errors).To(gomega.BeEmpty())
	})

	ginkgo.It("should withhold 20 points per missing check", func() {
		report := ValidatePasswordStrength("abcdefgh") // length + lower only

		gomega.Expect(report.Valid).To(gomega.BeFalse())
		gomega.Expect(report.Score).To(gomega.Equal(40))
		gomega.Expect(report.Errors).To(gomega.HaveLen(3))
	})
})

var _ = ginkgo.Describe("GenerateEmployeeID", func() {
	var format = regexp.MustCompile(`^EMP-\d{4}$`)

	ginkgo.It("should produce the EMP-NNNN format", func() {
		id, err := GenerateEmployeeID(nil)

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(format.MatchString(id)).To(gomega.BeTrue())
	})

	ginkgo.It("should avoid existing ids", func() {
		existing := []string{"EMP-0001", "EMP-0002"}
		for i := 0; i < 20; i++ {
			id, err := GenerateEmployeeID(existing)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(existing).ToNot(gomega.ContainElement(id))
		}
	})
})
