package vorbis

// state is the part of decoding shared by the pull and push decoders:
// the headers, the synthesiser and the sample position.
type state struct {
	opts    *Options
	s       setup
	headers int
	sy      *synth

	loc     int64 // position of the next sample to be returned
	haveLoc bool  // loc has been anchored to a granule position
}

func (st *state) ready() bool { return st.headers == 3 }

// header consumes the next header packet.
func (st *state) header(data []byte) error {
	var err error
	switch st.headers {
	case 0:
		err = st.s.readIdentification(data, st.opts.maxFrame())
	case 1:
		err = st.s.readComments(data)
	case 2:
		if err = st.s.readSetup(data); err == nil {
			st.sy = newSynth(&st.s)
		}
	}
	if err != nil {
		return err
	}
	st.headers++
	return nil
}

// audio decodes one audio packet and trims the result against the
// granule position carried by the packet, if any.
func (st *state) audio(pk packet) ([][]float32, error) {
	out, err := st.sy.decode(pk.data)
	if err != nil {
		return nil, err
	}
	n := int64(frameLen(out))
	var drop int64
	if pk.granule >= 0 {
		switch {
		case pk.last:
			// the final page may end mid-block
			if end := pk.granule - st.loc; end < n {
				n = max(end, 0)
			}
		case !st.haveLoc:
			// a stream starting after sample zero
			if extra := st.loc + n - pk.granule; extra > 0 {
				drop = min(extra, n)
				n -= drop
			}
		}
	}
	if out != nil {
		for c := range out {
			out[c] = out[c][drop : drop+n]
		}
	}
	st.loc += n
	if pk.granule >= 0 && !pk.last {
		st.loc, st.haveLoc = pk.granule, true
	}
	return out, nil
}

// restart forgets the overlap and position, for a jump in the stream.
func (st *state) restart() {
	st.sy.reset()
	st.loc, st.haveLoc = 0, false
}

func frameLen(f [][]float32) int {
	if len(f) == 0 {
		return 0
	}
	return len(f[0])
}
