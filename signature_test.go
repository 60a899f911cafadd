package msghash

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

const testPrivateKey = "3c1e9550e66958296d11b60f8e8e7a7ad990d07fa65d5f7652c4a6c87d4e3cc"

func hexInt(c *qt.C, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	c.Assert(ok, qt.IsTrue, qt.Commentf("bad hex %q", s))
	return v
}

func decInt(c *qt.C, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	c.Assert(ok, qt.IsTrue, qt.Commentf("bad decimal %q", s))
	return v
}

func TestPublicKey(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		priv, pub string
	}{
		{
			priv: "03c1e9550e66958296d11b60f8e8e7a7ad990d07fa65d5f7652c4a6c87d4e3cc",
			pub:  "077a3b314db07c45076d11f62b6f9e748a39790441823307743cf00d6597ea43",
		},
		{
			priv: "0000000000000000000000000000000000000000000000000000000000000012",
			pub:  "019661066e96a8b9f06a1d136881ee924dfb6a885239caa5fd3f87a54c6b25c4",
		},
	}
	for _, tc := range cases {
		pub, err := PublicKey(hexInt(c, tc.priv))
		c.Assert(err, qt.IsNil)
		c.Assert(pub.Cmp(hexInt(c, tc.pub)), qt.Equals, 0, qt.Commentf("priv %s", tc.priv))
	}
}

func TestPublicKeyRange(t *testing.T) {
	c := qt.New(t)

	_, err := PublicKey(big.NewInt(0))
	c.Assert(err, qt.ErrorIs, ErrInvalidPrivateKey)
	_, err = PublicKey(new(big.Int).Set(curveOrder))
	c.Assert(err, qt.ErrorIs, ErrInvalidPrivateKey)
	_, err = PublicKey(nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidPrivateKey)
}

func TestVerify(t *testing.T) {
	c := qt.New(t)

	valid, err := Verify(
		hexInt(c, "01ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"),
		big.NewInt(2),
		Signature{
			R: hexInt(c, "0411494b501a98abd8262b0da1351e17899a0c4ef23dd2f96fec5ba847310b20"),
			S: hexInt(c, "0405c3191ab3883ef2b763af35bc5f5d15b3b4e99461d70e84c654a351a7c81b"),
		},
	)
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsTrue)

	// tampered stark key
	valid, _ = Verify(
		hexInt(c, "077a4b314db07c45076d11f62b6f9e748a39790441823307743cf00d6597ea43"),
		hexInt(c, "0397e76d1667c4454bfb83514e120583af836f8e32a516765497823eabe16a3f"),
		Signature{
			R: hexInt(c, "0173fd03d8b008ee7432977ac27d1e9d1a1f6c98b1a2f05fa84a21c84c44e882"),
			S: hexInt(c, "01f2c44a7798f55192f153b4c48ea5c1241fbb69e6132cc8a0da9c5b62a4286e"),
		},
	)
	c.Assert(valid, qt.IsFalse)
}

func TestVerifyReferenceSignatures(t *testing.T) {
	c := qt.New(t)

	pub, err := PublicKey(hexInt(c, testPrivateKey))
	c.Assert(err, qt.IsNil)

	cases := []struct {
		msgHash, r, s string
	}{
		{
			msgHash: "1",
			r:       "3162358736122783857144396205516927012128897537504463716197279730251407200037",
			s:       "1447067116407676619871126378936374427636662490882969509559888874644844560850",
		},
		{
			msgHash: "223",
			r:       "2851492577225522862152785068304516872062840835882746625971400995051610132955",
			s:       "2227464623243182122770469099770977514100002325017609907274766387592987135410",
		},
		{
			msgHash: "387e76d1667c4454bfb835144120583af836f8e32a516765497d23eabe16b3f",
			r:       "3518448914047769356425227827389998721396724764083236823647519654917215164512",
			s:       "3042321032945513635364267149196358883053166552342928199041742035443537684462",
		},
	}
	for _, tc := range cases {
		valid, err := Verify(pub, hexInt(c, tc.msgHash), Signature{R: decInt(c, tc.r), S: decInt(c, tc.s)})
		c.Assert(err, qt.IsNil)
		c.Assert(valid, qt.IsTrue, qt.Commentf("msg %s", tc.msgHash))

		other := new(big.Int).Add(hexInt(c, tc.msgHash), big.NewInt(1))
		valid, err = Verify(pub, other, Signature{R: decInt(c, tc.r), S: decInt(c, tc.s)})
		c.Assert(err, qt.IsNil)
		c.Assert(valid, qt.IsFalse)
	}
}

func TestSign(t *testing.T) {
	c := qt.New(t)

	priv := hexInt(c, testPrivateKey)
	cases := []struct {
		msgHash, r, s string
	}{
		{
			msgHash: "1",
			r:       "3162358736122783857144396205516927012128897537504463716197279730251407200037",
			s:       "1447067116407676619871126378936374427636662490882969509559888874644844560850",
		},
		{
			msgHash: "11",
			r:       "2282960348362869237018441985726545922711140064809058182483721438101695251648",
			s:       "2905868291002627709651322791912000820756370440695830310841564989426104902684",
		},
		{
			msgHash: "223",
			r:       "2851492577225522862152785068304516872062840835882746625971400995051610132955",
			s:       "2227464623243182122770469099770977514100002325017609907274766387592987135410",
		},
		{
			msgHash: "9999",
			r:       "3551214266795401081823453828727326248401688527835302880992409448142527576296",
			s:       "2580950807716503852408066180369610390914312729170066679103651110985466032285",
		},
		{
			msgHash: "387e76d1667c4454bfb835144120583af836f8e32a516765497d23eabe16b3f",
			r:       "3518448914047769356425227827389998721396724764083236823647519654917215164512",
			s:       "3042321032945513635364267149196358883053166552342928199041742035443537684462",
		},
		{
			msgHash: "3a7e76d1697c4455bfb835144120283af236f8e32a516765497d23eabe16b2",
			r:       "2261926635950780594216378185339927576862772034098248230433352748057295357217",
			s:       "2708700003762962638306717009307430364534544393269844487939098184375356178572",
		},
		{
			msgHash: "fa5f0cd1ebff93c9e6474379a213ba111f9e42f2f1cb361b0327e0737203",
			r:       "3016953906936760149710218073693613509330129567629289734816320774638425763370",
			s:       "306146275372136078470081798635201810092238376869367156373203048583896337506",
		},
		{
			msgHash: "4c1e9550e66958296d11b60f8e8e7f7ae99dd0cfa6bd5fa652c1a6c87d4e2cc",
			r:       "3562728603055564208884290243634917206833465920158600288670177317979301056463",
			s:       "1958799632261808501999574190111106370256896588537275453140683641951899459876",
		},
		{
			msgHash: "6362b40c218fb4c8a8bd42ca482145e8513b78e00faa0de76a98ba14fc37ae8",
			r:       "3485557127492692423490706790022678621438670833185864153640824729109010175518",
			s:       "897592218067946175671768586886915961592526001156186496738437723857225288280",
		},
	}
	for _, tc := range cases {
		sig, err := Sign(priv, hexInt(c, tc.msgHash), nil)
		c.Assert(err, qt.IsNil)
		c.Assert(sig.R.Text(10), qt.Equals, tc.r, qt.Commentf("msg %s", tc.msgHash))
		c.Assert(sig.S.Text(10), qt.Equals, tc.s, qt.Commentf("msg %s", tc.msgHash))
	}
}

func TestSignRoundTrip(t *testing.T) {
	c := qt.New(t)

	priv := hexInt(c, testPrivateKey)
	pub, err := PublicKey(priv)
	c.Assert(err, qt.IsNil)

	digest, err := validTransferRequest().Hash()
	c.Assert(err, qt.IsNil)
	z := FeltToBig(&digest)

	sig, err := Sign(priv, z, nil)
	c.Assert(err, qt.IsNil)
	valid, err := Verify(pub, z, sig)
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsTrue)

	again, err := Sign(priv, z, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(again.R.Cmp(sig.R), qt.Equals, 0)
	c.Assert(again.S.Cmp(sig.S), qt.Equals, 0)

	seeded, err := Sign(priv, z, big.NewInt(7))
	c.Assert(err, qt.IsNil)
	c.Assert(seeded.R.Cmp(sig.R), qt.Not(qt.Equals), 0)
	valid, err = Verify(pub, z, seeded)
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsTrue)
}

func TestSignRange(t *testing.T) {
	c := qt.New(t)

	priv := hexInt(c, testPrivateKey)
	tooBig := hexInt(c, "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	_, err := Sign(priv, tooBig, nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidMessageHash)

	_, err = Sign(big.NewInt(0), big.NewInt(1), nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidPrivateKey)
}

func TestVerifyRange(t *testing.T) {
	c := qt.New(t)

	pub, err := PublicKey(hexInt(c, testPrivateKey))
	c.Assert(err, qt.IsNil)

	_, err = Verify(pub, elementBound, Signature{R: big.NewInt(1), S: big.NewInt(1)})
	c.Assert(err, qt.ErrorIs, ErrInvalidMessageHash)

	_, err = Verify(pub, big.NewInt(1), Signature{R: big.NewInt(0), S: big.NewInt(1)})
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)

	_, err = Verify(pub, big.NewInt(1), Signature{R: big.NewInt(1), S: curveOrder})
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)

	_, err = Verify(pub, big.NewInt(1), Signature{R: big.NewInt(1)})
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)
}
