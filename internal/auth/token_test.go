package auth

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/agent-management/internal"
)

var _ = ginkgo.Describe("ParseExpiry", func() {
	fallback := 42 * time.Second

	ginkgo.DescribeTable("compact duration format",
		func(input string, expected time.Duration) {
			gomega.Expect(ParseExpiry(input, fallback)).To(gomega.Equal(expected))
		},
		ginkgo.Entry("seconds", "900s", 900*time.Second),
		ginkgo.Entry("minutes", "15m", 15*time.Minute),
		ginkgo.Entry("hours", "2h", 2*time.Hour),
		ginkgo.Entry("days", "7d", 7*24*time.Hour),
		ginkgo.Entry("empty string", "", fallback),
		ginkgo.Entry("bare number", "15", fallback),
		ginkgo.Entry("unknown unit", "15w", fallback),
		ginkgo.Entry("negative value", "-5m", fallback),
		ginkgo.Entry("zero value", "0m", fallback),
		ginkgo.Entry("garbage", "abc", fallback),
	)
})

var _ = ginkgo.Describe("JWTTokenGenerator", func() {
	var (
		gen     *JWTTokenGenerator
		account *Account
	)

	ginkgo.BeforeEach(func() {
		gen = NewJWTTokenGenerator(
			"test-access-secret-at-least-32-chars!",
			"test-refresh-secret-at-least-32-chars",
			"15m", "7d",
		)
		account = &Account{
			ID:       "user-1",
			Username: "alice",
			Email:    "alice@example.com",
		}
	})

	ginkgo.Describe("access tokens", func() {
		ginkgo.It("round-trips the claim set", func() {
			token, expiresAt, err := gen.GenerateAccessToken(account, []string{"admin"}, []string{"users.read"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(expiresAt).To(gomega.BeTemporally("~", time.Now().Add(15*time.Minute), time.Minute))

			claims, err := gen.VerifyAccessToken(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("user-1"))
			gomega.Expect(claims.Username).To(gomega.Equal("alice"))
			gomega.Expect(claims.Roles).To(gomega.Equal([]string{"admin"}))
			gomega.Expect(claims.Permissions).To(gomega.Equal([]string{"users.read"}))
		})

		ginkgo.It("rejects a token signed with a different secret", func() {
			other := NewJWTTokenGenerator(
				"a-completely-different-access-secret!",
				"test-refresh-secret-at-least-32-chars",
				"15m", "7d",
			)
			token, _, err := other.GenerateAccessToken(account, nil, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = gen.VerifyAccessToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("reports expiry distinctly from other failures", func() {
			expired := NewJWTTokenGenerator(
				"test-access-secret-at-least-32-chars!",
				"test-refresh-secret-at-least-32-chars",
				"15m", "7d",
			)
			expired.AccessTokenTTL = -time.Minute

			token, _, err := expired.GenerateAccessToken(account, nil, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = gen.VerifyAccessToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})
	})

	ginkgo.Describe("refresh tokens", func() {
		ginkgo.It("verifies only against the refresh secret", func() {
			token, err := gen.GenerateRefreshToken("user-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := gen.VerifyRefreshToken(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("user-1"))

			_, err = gen.VerifyAccessToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects an access token even when secrets would match", func() {
			shared := NewJWTTokenGenerator(
				"one-shared-secret-for-both-token-kinds",
				"one-shared-secret-for-both-token-kinds",
				"15m", "7d",
			)
			token, _, err := shared.GenerateAccessToken(account, nil, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// signature passes, token_type check does not
			_, err = shared.VerifyRefreshToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})
})
