package api

import (
	"net/url"
	"testing"

	"github.com/okian/jmscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWireFormat(t *testing.T) {
	Convey("Given no rows", t, func() {
		So(formatPersonal(nil), ShouldEqual, "")
		So(formatGlobal(nil), ShouldEqual, "")
	})

	Convey("Given a single global row", t, func() {
		out := formatGlobal([]types.GlobalRow{{
			Page: 0, EntryID: "1234567890123456", PlayerID: "zed", Score: 9_999_999_999,
			Level: 999, Class: 42, ElapsedTime: 1, JewelCount: 9999,
		}})

		Convey("Then it has ten fields and no separator", func() {
			So(out, ShouldEqual, "0\n1234567890123456\nzed\n9999999999\n0\n999\n42\n1\n9999\n0")
		})
	})
}

func TestParams(t *testing.T) {
	Convey("Given lenient parsing", t, func() {
		v := url.Values{"mode": {" 2 "}, "view": {"-1"}, "bad": {"1e3"}}
		So(intOr(v, "mode", 0), ShouldEqual, 2)
		So(intOr(v, "view", 0), ShouldEqual, -1)
		So(intOr(v, "bad", 7), ShouldEqual, 7)
		So(intOr(v, "absent", 0), ShouldEqual, 0)
	})

	Convey("Given strict parsing", t, func() {
		v := url.Values{
			"id": {"alice"}, "mode": {"2"}, "score": {"123"}, "jewel": {"4"},
			"level": {"5"}, "class": {"6"}, "time": {"7"},
		}
		sub, err := parseSubmission(v)
		So(err, ShouldBeNil)
		So(sub.PlayerID, ShouldEqual, "alice")
		So(sub.Mode, ShouldEqual, 2)
		So(sub.Score, ShouldEqual, 123)
		So(sub.ElapsedTime, ShouldEqual, 7)

		v.Set("class", "six")
		_, err = parseSubmission(v)
		So(err, ShouldNotBeNil)

		v.Del("class")
		_, err = parseSubmission(v)
		So(err, ShouldNotBeNil)
	})
}
